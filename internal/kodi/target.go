package kodi

import (
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/kodibridge/internal/infrastructure/config"
	"github.com/nerrad567/kodibridge/internal/infrastructure/logging"
)

// Target is one controllable Kodi instance.
type Target struct {
	ID      string
	Address string
	*Remote

	closer interface{ Close() error }
}

// NewTarget wraps caller as a target with the given id.
// Tests use it to plug in a fake Caller.
func NewTarget(id, address string, caller Caller) *Target {
	t := &Target{
		ID:      id,
		Address: address,
		Remote:  NewRemote(id, caller),
	}
	if c, ok := caller.(interface{ Close() error }); ok {
		t.closer = c
	}
	return t
}

// Targets is the immutable set of configured instances.
// The first target is the default.
//
// Thread Safety:
//   - Targets is never modified after construction; concurrent reads are safe.
type Targets struct {
	list []*Target
	byID map[string]*Target
}

// NewTargets builds a registry from targets, keeping their order.
//
// Returns:
//   - error: If targets is empty or two targets share an id
func NewTargets(targets ...*Target) (*Targets, error) {
	if len(targets) == 0 {
		return nil, errors.New("kodi: at least one target is required")
	}

	reg := &Targets{
		list: make([]*Target, 0, len(targets)),
		byID: make(map[string]*Target, len(targets)),
	}
	for _, t := range targets {
		if _, dup := reg.byID[t.ID]; dup {
			return nil, fmt.Errorf("kodi: duplicate target id %q", t.ID)
		}
		reg.list = append(reg.list, t)
		reg.byID[t.ID] = t
	}
	return reg, nil
}

// FromConfig creates a client per configured instance and returns them as
// a registry.
//
// Parameters:
//   - cfg: Kodi section of the configuration (instances and call timeout)
//   - logger: Logger passed to every client
//
// Returns:
//   - *Targets: Registry in configuration order
//   - error: If a client cannot be created
func FromConfig(cfg config.KodiConfig, logger *logging.Logger) (*Targets, error) {
	timeout := time.Duration(cfg.CallTimeout) * time.Second

	targets := make([]*Target, 0, len(cfg.Instances))
	for _, inst := range cfg.Instances {
		client, err := NewClient(inst, timeout, logger)
		if err != nil {
			closeAll(targets)
			return nil, err
		}
		targets = append(targets, NewTarget(inst.ID, inst.Address(), client))
	}

	reg, err := NewTargets(targets...)
	if err != nil {
		closeAll(targets)
		return nil, err
	}
	return reg, nil
}

// Default returns the first configured target.
func (r *Targets) Default() *Target {
	return r.list[0]
}

// Lookup returns the target with the given id.
func (r *Targets) Lookup(id string) (*Target, bool) {
	t, ok := r.byID[id]
	return t, ok
}

// IDs returns the target ids in configuration order.
func (r *Targets) IDs() []string {
	ids := make([]string, len(r.list))
	for i, t := range r.list {
		ids[i] = t.ID
	}
	return ids
}

// Len returns the number of targets.
func (r *Targets) Len() int {
	return len(r.list)
}

// Close closes every target's client.
func (r *Targets) Close() error {
	return closeAll(r.list)
}

func closeAll(targets []*Target) error {
	var errs []error
	for _, t := range targets {
		if t.closer == nil {
			continue
		}
		if err := t.closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %s: %w", t.ID, err))
		}
	}
	return errors.Join(errs...)
}
