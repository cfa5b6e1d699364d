// Package preset persists user prompt presets in Redis: one hash per
// preset plus a per-user set of preset IDs.
package preset

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when no preset exists for the given ID.
var ErrNotFound = errors.New("preset not found")

const opTimeout = 800 * time.Millisecond

// Preset is a stored prompt preset.
type Preset struct {
	ID        string `redis:"id"`
	UID       string `redis:"uid"`
	Title     string `redis:"title"`
	Prompt    string `redis:"prompt"`
	IsDefault bool   `redis:"is_default"`
	CreatedAt int64  `redis:"created_at"`
}

type Store struct {
	client *redis.Client
	prefix string
}

func NewStore(client *redis.Client, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

func (s *Store) presetKey(id string) string {
	return s.prefix + "preset:" + id
}

func (s *Store) userKey(uid string) string {
	return s.prefix + "user:" + uid + ":presets"
}

// Create stores a new preset for uid and returns it.
func (s *Store) Create(ctx context.Context, uid, title, prompt string) (Preset, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	p := Preset{
		ID:        uuid.NewString(),
		UID:       uid,
		Title:     title,
		Prompt:    prompt,
		CreatedAt: time.Now().Unix(),
	}
	if err := s.client.HSet(ctx, s.presetKey(p.ID), fields(p)).Err(); err != nil {
		return Preset{}, fmt.Errorf("redis HSET %s: %w", s.presetKey(p.ID), err)
	}
	if err := s.client.SAdd(ctx, s.userKey(uid), p.ID).Err(); err != nil {
		return Preset{}, fmt.Errorf("redis SADD %s: %w", s.userKey(uid), err)
	}
	return p, nil
}

// Get fetches one preset by ID.
func (s *Store) Get(ctx context.Context, id string) (Preset, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res := s.client.HGetAll(ctx, s.presetKey(id))
	if err := res.Err(); err != nil {
		return Preset{}, fmt.Errorf("redis HGETALL %s: %w", s.presetKey(id), err)
	}
	if len(res.Val()) == 0 {
		return Preset{}, ErrNotFound
	}
	var p Preset
	if err := res.Scan(&p); err != nil {
		return Preset{}, fmt.Errorf("scan preset %s: %w", id, err)
	}
	return p, nil
}

// List returns all presets owned by uid.
func (s *Store) List(ctx context.Context, uid string) ([]Preset, error) {
	listCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	ids, err := s.client.SMembers(listCtx, s.userKey(uid)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis SMEMBERS %s: %w", s.userKey(uid), err)
	}

	presets := make([]Preset, 0, len(ids))
	for _, id := range ids {
		p, err := s.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		presets = append(presets, p)
	}
	return presets, nil
}

// Update rewrites the title and prompt of an existing preset.
func (s *Store) Update(ctx context.Context, id, title, prompt string) error {
	p, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	p.Title = title
	p.Prompt = prompt

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if err := s.client.HSet(ctx, s.presetKey(id), fields(p)).Err(); err != nil {
		return fmt.Errorf("redis HSET %s: %w", s.presetKey(id), err)
	}
	return nil
}

// Delete removes a preset and its membership in the owner's set.
func (s *Store) Delete(ctx context.Context, uid, id string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := s.client.Del(ctx, s.presetKey(id)).Err(); err != nil {
		return fmt.Errorf("redis DEL %s: %w", s.presetKey(id), err)
	}
	if err := s.client.SRem(ctx, s.userKey(uid), id).Err(); err != nil {
		return fmt.Errorf("redis SREM %s: %w", s.userKey(uid), err)
	}
	return nil
}

func fields(p Preset) map[string]any {
	return map[string]any{
		"id":         p.ID,
		"uid":        p.UID,
		"title":      p.Title,
		"prompt":     p.Prompt,
		"is_default": p.IsDefault,
		"created_at": p.CreatedAt,
	}
}
