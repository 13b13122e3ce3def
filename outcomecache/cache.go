// Package outcomecache stores behaviour execution outcomes, indexed by
// source behaviour and queryable by source stimulus. It is the single
// point of truth for outcome provenance: behaviours may emit bare
// outcomes and rely on AddOutcomeSet backfilling the source fields from
// the enclosing set.
package outcomecache

import (
	"sync"

	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/twin"
)

// Cache holds the outcome pool together with a behaviour index. Every
// outcome id present in a behaviour index entry refers to an outcome
// still present in the pool; no empty index entries remain after a
// removal.
type Cache struct {
	mu          sync.RWMutex
	pool        map[string]twin.Outcome
	byBehaviour map[twin.BehaviourID]map[string]struct{}
}

// New creates an empty outcome cache.
func New() *Cache {
	return &Cache{
		pool:        make(map[string]twin.Outcome),
		byBehaviour: make(map[twin.BehaviourID]map[string]struct{}),
	}
}

// AddOutcome stores a single outcome. An outcome without an identifier is
// ignored. Outcomes carrying a source behaviour are indexed under it.
func (c *Cache) AddOutcome(o twin.Outcome) {
	if o.ID == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.addLocked(o)
}

// AddOutcomeSet stores every outcome in the set, backfilling the source
// behaviour, source stimulus and twin id from the set's declared
// provenance wherever the outcome left them unset.
func (c *Cache) AddOutcomeSet(set twin.OutcomeSet) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, o := range set.Outcomes {
		if o.SourceBehaviour == "" {
			o.SourceBehaviour = set.SourceBehaviour
		}
		if o.SourceStimulus == "" {
			o.SourceStimulus = set.SourceStimulus
		}
		if o.TwinID == "" {
			o.TwinID = set.TwinID
		}
		c.addLocked(o)
	}
}

func (c *Cache) addLocked(o twin.Outcome) {
	if o.ID == "" {
		return
	}
	c.pool[o.ID] = o
	if o.SourceBehaviour == "" {
		return
	}
	ids, ok := c.byBehaviour[o.SourceBehaviour]
	if !ok {
		ids = make(map[string]struct{})
		c.byBehaviour[o.SourceBehaviour] = ids
	}
	ids[o.ID] = struct{}{}
}

// RemoveOutcome removes an outcome from the pool and de-indexes it from
// its behaviour. Returns false if the id was not present.
func (c *Cache) RemoveOutcome(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.removeLocked(id)
}

func (c *Cache) removeLocked(id string) bool {
	o, ok := c.pool[id]
	if !ok {
		return false
	}
	delete(c.pool, id)

	if o.SourceBehaviour != "" {
		if ids, ok := c.byBehaviour[o.SourceBehaviour]; ok {
			delete(ids, id)
			if len(ids) == 0 {
				delete(c.byBehaviour, o.SourceBehaviour)
			}
		}
	}
	return true
}

// RemoveOutcomesDerivedFromStimulus removes every outcome whose source
// stimulus matches the given id. Called when a stimulus is retired so
// outcomes never outlive their provenance chain. Returns the number of
// outcomes removed.
func (c *Cache) RemoveOutcomesDerivedFromStimulus(stimulusID string) int {
	if stimulusID == "" {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for id, o := range c.pool {
		if o.SourceStimulus == stimulusID {
			if c.removeLocked(id) {
				removed++
			}
		}
	}
	return removed
}

// BehaviourBasedOutcomes returns every outcome indexed under the given
// behaviour. The result is never nil.
func (c *Cache) BehaviourBasedOutcomes(behaviourID twin.BehaviourID) []twin.Outcome {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]twin.Outcome, 0, len(c.byBehaviour[behaviourID]))
	for id := range c.byBehaviour[behaviourID] {
		if o, ok := c.pool[id]; ok {
			out = append(out, o)
		}
	}
	return out
}

// StimulusDerivedOutcomes returns every outcome whose source stimulus
// matches the given id. The result is never nil.
func (c *Cache) StimulusDerivedOutcomes(stimulusID string) []twin.Outcome {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]twin.Outcome, 0)
	for _, o := range c.pool {
		if o.SourceStimulus == stimulusID {
			out = append(out, o)
		}
	}
	return out
}

// Outcome returns the outcome stored under the given id.
func (c *Cache) Outcome(id string) (twin.Outcome, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	o, ok := c.pool[id]
	return o, ok
}

// Size returns the number of outcomes in the pool.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.pool)
}

// Behaviours returns the behaviours with at least one indexed outcome.
func (c *Cache) Behaviours() []twin.BehaviourID {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]twin.BehaviourID, 0, len(c.byBehaviour))
	for b := range c.byBehaviour {
		out = append(out, b)
	}
	return out
}
