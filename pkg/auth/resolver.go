package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Subject is the storage-side view of a user as needed for authorization
type Subject struct {
	ID     int64
	Email  string
	Roles  []string
	Active bool
}

// SubjectLookup loads a subject from the system of record. Returns nil, nil
// when the subject does not exist.
type SubjectLookup interface {
	LookupSubject(ctx context.Context, id int64) (*Subject, error)
}

// Resolver derives the current Principal for a subject id from storage,
// bypassing whatever roles snapshot an already-issued token carries. Every
// privilege-sensitive decision goes through Resolve so that promotions,
// demotions, and deactivations take effect without re-login.
//
// Lookups are fronted by an optional two-tier cache (in-process LRU plus
// redis) with a short TTL. The cache is an optimization only; role mutations
// and deletions call Invalidate.
type Resolver struct {
	lookup SubjectLookup
	l1     *expirable.LRU[int64, *Principal]
	redis  *redis.Client
	ttl    time.Duration

	// OnCacheHit/OnCacheMiss are optional observation hooks
	OnCacheHit  func()
	OnCacheMiss func()
}

// NewResolver creates a resolver. cacheSize <= 0 disables the in-process
// tier; a nil redis client disables the redis tier.
func NewResolver(lookup SubjectLookup, cacheSize int, cacheTTL time.Duration, redisClient *redis.Client) *Resolver {
	r := &Resolver{
		lookup: lookup,
		redis:  redisClient,
		ttl:    cacheTTL,
	}
	if cacheSize > 0 && cacheTTL > 0 {
		r.l1 = expirable.NewLRU[int64, *Principal](cacheSize, nil, cacheTTL)
	}
	return r
}

type cachedSubject struct {
	SubjectID int64    `json:"subjectId"`
	Email     string   `json:"email"`
	Roles     []string `json:"roles"`
}

func principalCacheKey(id int64) string {
	return fmt.Sprintf("praxis:principal:%d", id)
}

// Resolve returns the current Principal for the subject, or nil, nil when
// the subject no longer exists or has been deactivated. Callers must treat
// nil as "deauthorized", not as a token failure.
//
// The returned Principal is the caller's own copy; cached entries are never
// handed out directly, so attaching per-request state to it is safe.
func (r *Resolver) Resolve(ctx context.Context, subjectID int64) (*Principal, error) {
	if r.l1 != nil {
		if p, ok := r.l1.Get(subjectID); ok {
			r.hit()
			return p.Clone(), nil
		}
	}

	if r.redis != nil {
		data, err := r.redis.Get(ctx, principalCacheKey(subjectID)).Result()
		if err == nil {
			var cs cachedSubject
			if jsonErr := json.Unmarshal([]byte(data), &cs); jsonErr == nil {
				p := &Principal{
					SubjectID: cs.SubjectID,
					Email:     cs.Email,
					Roles:     NormalizeRoles(cs.Roles),
				}
				if r.l1 != nil {
					r.l1.Add(subjectID, p)
				}
				r.hit()
				return p.Clone(), nil
			}
			// Corrupt cache entry: drop it and fall through to storage
			r.redis.Del(ctx, principalCacheKey(subjectID))
		} else if err != redis.Nil {
			// Redis being down must not take auth down with it
			r.miss()
			return r.resolveFromStore(ctx, subjectID)
		}
	}

	r.miss()
	return r.resolveFromStore(ctx, subjectID)
}

func (r *Resolver) resolveFromStore(ctx context.Context, subjectID int64) (*Principal, error) {
	subject, err := r.lookup.LookupSubject(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("looking up subject %d: %w", subjectID, err)
	}
	if subject == nil || !subject.Active {
		return nil, nil
	}

	p := &Principal{
		SubjectID: subject.ID,
		Email:     subject.Email,
		Roles:     NormalizeRoles(subject.Roles),
	}
	r.cache(ctx, p)
	return p.Clone(), nil
}

func (r *Resolver) cache(ctx context.Context, p *Principal) {
	if r.l1 != nil {
		r.l1.Add(p.SubjectID, p)
	}
	if r.redis != nil {
		data, err := json.Marshal(cachedSubject{
			SubjectID: p.SubjectID,
			Email:     p.Email,
			Roles:     p.Roles.Strings(),
		})
		if err == nil {
			r.redis.Set(ctx, principalCacheKey(p.SubjectID), data, r.ttl)
		}
	}
}

// Invalidate evicts a subject from both cache tiers. Called on role change,
// deactivation, and deletion so the next Resolve observes current state.
func (r *Resolver) Invalidate(ctx context.Context, subjectID int64) {
	if r.l1 != nil {
		r.l1.Remove(subjectID)
	}
	if r.redis != nil {
		r.redis.Del(ctx, principalCacheKey(subjectID))
	}
}

func (r *Resolver) hit() {
	if r.OnCacheHit != nil {
		r.OnCacheHit()
	}
}

func (r *Resolver) miss() {
	if r.OnCacheMiss != nil {
		r.OnCacheMiss()
	}
}
