package workout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/coocood/freecache"
)

// Source supplies workout structures. Implemented by the storage backends.
type Source interface {
	WorkoutVersion(ctx context.Context, workoutID int64) (int64, error)
	GetWorkoutStructure(ctx context.Context, workoutID int64) (Workout, error)
}

// Plan is a flattened workout ready to run.
type Plan struct {
	WorkoutID        int64  `json:"workoutId"`
	Version          int64  `json:"version"`
	Name             string `json:"name"`
	Type             Type   `json:"type"`
	TimeLimitMinutes int    `json:"timeLimitMinutes,omitempty"`
	Steps            []Step `json:"steps"`
	CumReps          []int  `json:"cumReps"`
}

// Catalog caches flattened plans keyed by workout id and version, so a
// structure is only re-flattened after it changes.
type Catalog struct {
	src   Source
	cache *freecache.Cache
	log   *slog.Logger

	// OnLookup, when set, is called with true on a cache hit and false on a miss.
	OnLookup func(hit bool)
}

// NewCatalog creates a Catalog with a cache of sizeBytes (freecache enforces a 512KiB minimum).
func NewCatalog(src Source, sizeBytes int, log *slog.Logger) *Catalog {
	return &Catalog{
		src:   src,
		cache: freecache.NewCache(sizeBytes),
		log:   log,
	}
}

func cacheKey(workoutID, version int64) []byte {
	return []byte(strconv.FormatInt(workoutID, 10) + ":" + strconv.FormatInt(version, 10))
}

// Plan returns the flattened plan for the current version of a workout.
func (c *Catalog) Plan(ctx context.Context, workoutID int64) (*Plan, error) {
	version, err := c.src.WorkoutVersion(ctx, workoutID)
	if err != nil {
		return nil, fmt.Errorf("looking up workout version: %w", err)
	}

	key := cacheKey(workoutID, version)
	if data, err := c.cache.Get(key); err == nil {
		var p Plan
		if err := json.Unmarshal(data, &p); err == nil {
			c.lookup(true)
			return &p, nil
		}
		c.cache.Del(key)
	} else if !errors.Is(err, freecache.ErrNotFound) {
		c.log.Warn("step cache read failed", "workout_id", workoutID, "error", err)
	}
	c.lookup(false)

	w, err := c.src.GetWorkoutStructure(ctx, workoutID)
	if err != nil {
		return nil, fmt.Errorf("loading workout structure: %w", err)
	}
	steps, cum, err := Flatten(w)
	if err != nil {
		return nil, fmt.Errorf("flattening workout %d: %w", workoutID, err)
	}

	p := &Plan{
		WorkoutID:        workoutID,
		Version:          w.Version,
		Name:             w.Name,
		Type:             w.Type,
		TimeLimitMinutes: w.TimeLimitMinutes,
		Steps:            steps,
		CumReps:          cum,
	}

	data, err := json.Marshal(p)
	if err == nil {
		// Entries never expire; a new version gets a new key.
		if err := c.cache.Set(cacheKey(workoutID, w.Version), data, 0); err != nil {
			c.log.Warn("step cache write failed", "workout_id", workoutID, "error", err)
		}
	}
	return p, nil
}

func (c *Catalog) lookup(hit bool) {
	if c.OnLookup != nil {
		c.OnLookup(hit)
	}
}
