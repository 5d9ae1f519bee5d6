package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/brightstage/line-gateway/internal/line"
	redisclient "github.com/brightstage/line-gateway/internal/redis"
)

// ProfileAPI is the slice of the platform client the resolver needs.
type ProfileAPI interface {
	GetProfile(ctx context.Context, userID string) (*line.Profile, error)
}

// ProfileCache is satisfied by *redis.Client. GetString returns "" for a
// missing key.
type ProfileCache interface {
	GetString(ctx context.Context, key string) (string, error)
	SetString(ctx context.Context, key, value string, ttl time.Duration) error
}

type ProfileResolver struct {
	api   ProfileAPI
	cache ProfileCache
	ttl   time.Duration
}

func NewProfileResolver(api ProfileAPI, cache ProfileCache, ttl time.Duration) *ProfileResolver {
	return &ProfileResolver{api: api, cache: cache, ttl: ttl}
}

// Resolve returns the subscriber's display identity, or nil when it cannot be
// fetched. Callers treat nil as "proceed without enrichment": a failed profile
// lookup never aborts the operation that asked for it.
func (r *ProfileResolver) Resolve(ctx context.Context, lineUID string) *line.Profile {
	if lineUID == "" {
		return nil
	}

	if cached := r.fromCache(ctx, lineUID); cached != nil {
		return cached
	}

	profile, err := r.api.GetProfile(ctx, lineUID)
	if err != nil {
		log.Warn().Err(err).Str("lineUid", lineUID).Msg("profile fetch failed, proceeding without enrichment")
		return nil
	}

	r.toCache(ctx, lineUID, profile)
	return profile
}

func (r *ProfileResolver) fromCache(ctx context.Context, lineUID string) *line.Profile {
	if r.cache == nil {
		return nil
	}

	raw, err := r.cache.GetString(ctx, redisclient.ProfileKey(lineUID))
	if err != nil {
		log.Debug().Err(err).Str("lineUid", lineUID).Msg("profile cache read failed")
		return nil
	}
	if raw == "" {
		return nil
	}

	var profile line.Profile
	if err := json.Unmarshal([]byte(raw), &profile); err != nil {
		return nil
	}
	return &profile
}

func (r *ProfileResolver) toCache(ctx context.Context, lineUID string, profile *line.Profile) {
	if r.cache == nil {
		return
	}

	data, err := json.Marshal(profile)
	if err != nil {
		return
	}
	if err := r.cache.SetString(ctx, redisclient.ProfileKey(lineUID), string(data), r.ttl); err != nil {
		log.Debug().Err(err).Str("lineUid", lineUID).Msg("profile cache write failed")
	}
}
