package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/brightstage/line-gateway/internal/line"
	"github.com/brightstage/line-gateway/internal/model"
	"github.com/brightstage/line-gateway/internal/service"
)

// FollowerAPI is the slice of the platform client the sync needs.
type FollowerAPI interface {
	FollowerIDs(ctx context.Context, start string) (*line.FollowerIDs, error)
}

type SyncResult struct {
	Synced  int `json:"synced"`
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}

// FollowerSync reconciles the platform's subscriber listing into the customer
// directory. Pages are fetched until the cursor is exhausted or maxIDs is
// reached; ids are then processed in sequential chunks, with the ids inside a
// chunk resolved concurrently.
type FollowerSync struct {
	api       FollowerAPI
	profiles  *service.ProfileResolver
	customers *service.CustomerService
	maxIDs    int
	chunkSize int
	interval  time.Duration
	done      chan struct{}
	wg        sync.WaitGroup
}

func NewFollowerSync(
	api FollowerAPI,
	profiles *service.ProfileResolver,
	customers *service.CustomerService,
	maxIDs, chunkSize int,
	interval time.Duration,
) *FollowerSync {
	if maxIDs <= 0 {
		maxIDs = 1000
	}
	if chunkSize <= 0 {
		chunkSize = 10
	}
	return &FollowerSync{
		api:       api,
		profiles:  profiles,
		customers: customers,
		maxIDs:    maxIDs,
		chunkSize: chunkSize,
		interval:  interval,
		done:      make(chan struct{}),
	}
}

// Run executes one full sync pass. A platform rejection of the follower
// listing (free-tier accounts) fails the whole run; individual profile or
// directory failures only skip that id.
func (s *FollowerSync) Run(ctx context.Context) (*SyncResult, error) {
	ids, err := s.collectIDs(ctx)
	if err != nil {
		return nil, err
	}

	log.Info().Int("followers", len(ids)).Msg("follower sync started")

	result := &SyncResult{}
	var mu sync.Mutex

	for start := 0; start < len(ids); start += s.chunkSize {
		end := start + s.chunkSize
		if end > len(ids) {
			end = len(ids)
		}

		// Chunk N+1 does not start until chunk N has settled.
		var wg sync.WaitGroup
		for _, id := range ids[start:end] {
			wg.Add(1)
			go func(lineUID string) {
				defer wg.Done()

				profile := s.profiles.Resolve(ctx, lineUID)
				if profile == nil {
					mu.Lock()
					result.Skipped++
					mu.Unlock()
					return
				}

				// Followers discovered here start at the beginning of the
				// lifecycle; an existing row keeps its status on conflict.
				cust, err := s.customers.Upsert(ctx, lineUID, profile, model.CustomerStatusNew, time.Time{})
				if err != nil {
					log.Warn().Err(err).Str("lineUid", lineUID).Msg("follower upsert failed, skipping")
					mu.Lock()
					result.Skipped++
					mu.Unlock()
					return
				}

				mu.Lock()
				result.Synced++
				// A fresh row has identical create/update stamps; a
				// conflicting upsert touches updated_at.
				if cust.CreatedAt.Equal(cust.UpdatedAt) {
					result.Created++
				}
				mu.Unlock()
			}(id)
		}
		wg.Wait()
	}

	log.Info().
		Int("synced", result.Synced).
		Int("created", result.Created).
		Int("skipped", result.Skipped).
		Msg("follower sync finished")

	return result, nil
}

func (s *FollowerSync) collectIDs(ctx context.Context) ([]string, error) {
	var ids []string
	cursor := ""

	for {
		page, err := s.api.FollowerIDs(ctx, cursor)
		if err != nil {
			return nil, fmt.Errorf("list followers: %w", err)
		}

		ids = append(ids, page.UserIDs...)
		if len(ids) >= s.maxIDs {
			log.Warn().Int("cap", s.maxIDs).Msg("follower listing truncated at safety cap")
			return ids[:s.maxIDs], nil
		}
		if page.Next == "" {
			return ids, nil
		}
		cursor = page.Next
	}
}

// Start launches the periodic mode. A non-positive interval means sync runs
// only on demand.
func (s *FollowerSync) Start() {
	if s.interval <= 0 {
		log.Info().Msg("periodic follower sync disabled")
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		log.Info().Dur("interval", s.interval).Msg("periodic follower sync started")

		for {
			select {
			case <-ticker.C:
				if _, err := s.Run(context.Background()); err != nil {
					log.Error().Err(err).Msg("periodic follower sync failed")
				}
			case <-s.done:
				return
			}
		}
	}()
}

func (s *FollowerSync) Stop() {
	close(s.done)
	s.wg.Wait()
}
