package memory

import (
	"context"
	"time"

	"lxcloud/internal/devauth"
	"lxcloud/internal/domain/registry"

	"github.com/google/uuid"
)

type registryView struct {
	store *Store
}

func (v *registryView) UpsertControllerContact(_ context.Context, serialNumber string, loc *registry.Location) (*registry.Controller, error) {
	v.store.mu.Lock()
	defer v.store.mu.Unlock()

	// A claimed serial must never reappear as a controller.
	if _, ok := v.store.screens[serialNumber]; ok {
		return nil, registry.ErrSerialConflict
	}

	now := time.Now()

	if c, ok := v.store.controllers[serialNumber]; ok {
		c.Online = true
		c.LastSeenAt = &now
		applyLocation(&c.Latitude, &c.Longitude, loc)
		return copyController(c), nil
	}

	secret, err := devauth.NewRegistrationSecret()
	if err != nil {
		return nil, err
	}

	c := &registry.Controller{
		ID:                 uuid.New(),
		SerialNumber:       serialNumber,
		RegistrationSecret: secret,
		Online:             true,
		LastSeenAt:         &now,
		CreatedAt:          now,
	}
	applyLocation(&c.Latitude, &c.Longitude, loc)
	v.store.controllers[serialNumber] = c

	return copyController(c), nil
}

func (v *registryView) Classify(_ context.Context, serialNumber string) (*registry.Classification, error) {
	v.store.mu.Lock()
	defer v.store.mu.Unlock()

	if sc, ok := v.store.screens[serialNumber]; ok {
		return &registry.Classification{State: registry.StateScreen, Screen: copyScreen(sc)}, nil
	}
	if c, ok := v.store.controllers[serialNumber]; ok {
		return &registry.Classification{State: registry.StateController, Controller: copyController(c)}, nil
	}

	return &registry.Classification{State: registry.StateUnknown}, nil
}

func (v *registryView) Claim(_ context.Context, serialNumber string, ownerID uuid.UUID, displayName string) (*registry.Screen, error) {
	v.store.mu.Lock()
	defer v.store.mu.Unlock()

	if _, ok := v.store.screens[serialNumber]; ok {
		return nil, registry.ErrAlreadyClaimed
	}

	c, ok := v.store.controllers[serialNumber]
	if !ok {
		return nil, registry.ErrControllerNotFound
	}

	sc := &registry.Screen{
		ID:           uuid.New(),
		SerialNumber: serialNumber,
		OwnerID:      ownerID,
		DisplayName:  displayName,
		Latitude:     c.Latitude,
		Longitude:    c.Longitude,
		Online:       c.Online,
		LastSeenAt:   c.LastSeenAt,
		CreatedAt:    time.Now(),
	}

	delete(v.store.controllers, serialNumber)
	v.store.screens[serialNumber] = sc

	return copyScreen(sc), nil
}

func (v *registryView) Unclaim(ctx context.Context, serialNumber string) (*registry.Controller, error) {
	return v.demoteScreen(ctx, serialNumber)
}

func (v *registryView) DeleteScreen(ctx context.Context, serialNumber string) (*registry.Controller, error) {
	return v.demoteScreen(ctx, serialNumber)
}

func (v *registryView) demoteScreen(_ context.Context, serialNumber string) (*registry.Controller, error) {
	v.store.mu.Lock()
	defer v.store.mu.Unlock()

	sc, ok := v.store.screens[serialNumber]
	if !ok {
		return nil, registry.ErrScreenNotFound
	}

	secret, err := devauth.NewRegistrationSecret()
	if err != nil {
		return nil, err
	}

	c := &registry.Controller{
		ID:                 uuid.New(),
		SerialNumber:       serialNumber,
		RegistrationSecret: secret,
		Latitude:           sc.Latitude,
		Longitude:          sc.Longitude,
		Online:             sc.Online,
		LastSeenAt:         sc.LastSeenAt,
		CreatedAt:          time.Now(),
	}

	delete(v.store.screens, serialNumber)
	delete(v.store.telemetry, sc.ID)
	v.store.controllers[serialNumber] = c

	return copyController(c), nil
}

func (v *registryView) TouchController(_ context.Context, id uuid.UUID, loc *registry.Location) error {
	v.store.mu.Lock()
	defer v.store.mu.Unlock()

	for _, c := range v.store.controllers {
		if c.ID == id {
			now := time.Now()
			c.Online = true
			c.LastSeenAt = &now
			applyLocation(&c.Latitude, &c.Longitude, loc)
			return nil
		}
	}

	return registry.ErrControllerNotFound
}

func (v *registryView) TouchScreen(_ context.Context, id uuid.UUID, loc *registry.Location) error {
	v.store.mu.Lock()
	defer v.store.mu.Unlock()

	for _, sc := range v.store.screens {
		if sc.ID == id {
			now := time.Now()
			sc.Online = true
			sc.LastSeenAt = &now
			applyLocation(&sc.Latitude, &sc.Longitude, loc)
			return nil
		}
	}

	return registry.ErrScreenNotFound
}

func (v *registryView) RenameScreen(_ context.Context, serialNumber, displayName string) (*registry.Screen, error) {
	v.store.mu.Lock()
	defer v.store.mu.Unlock()

	sc, ok := v.store.screens[serialNumber]
	if !ok {
		return nil, registry.ErrScreenNotFound
	}

	sc.DisplayName = displayName
	return copyScreen(sc), nil
}

func (v *registryView) GetScreen(_ context.Context, serialNumber string) (*registry.Screen, error) {
	v.store.mu.Lock()
	defer v.store.mu.Unlock()

	sc, ok := v.store.screens[serialNumber]
	if !ok {
		return nil, registry.ErrScreenNotFound
	}

	return copyScreen(sc), nil
}

func (v *registryView) ListControllers(_ context.Context) ([]*registry.Controller, error) {
	v.store.mu.Lock()
	defer v.store.mu.Unlock()

	controllers := make([]*registry.Controller, 0, len(v.store.controllers))
	for _, c := range v.store.controllers {
		controllers = append(controllers, copyController(c))
	}

	return controllers, nil
}

func (v *registryView) ListScreens(_ context.Context, ownerID *uuid.UUID) ([]*registry.Screen, error) {
	v.store.mu.Lock()
	defer v.store.mu.Unlock()

	screens := make([]*registry.Screen, 0, len(v.store.screens))
	for _, sc := range v.store.screens {
		if ownerID != nil && sc.OwnerID != *ownerID {
			continue
		}
		screens = append(screens, copyScreen(sc))
	}

	return screens, nil
}

func (v *registryView) ScreensByOwner(ctx context.Context, ownerID uuid.UUID) ([]*registry.Screen, error) {
	return v.ListScreens(ctx, &ownerID)
}

func (v *registryView) MarkStale(_ context.Context, cutoff time.Time, dryRun bool) (int64, error) {
	v.store.mu.Lock()
	defer v.store.mu.Unlock()

	var count int64

	for _, c := range v.store.controllers {
		if c.Online && c.LastSeenAt != nil && c.LastSeenAt.Before(cutoff) {
			count++
			if !dryRun {
				c.Online = false
			}
		}
	}
	for _, sc := range v.store.screens {
		if sc.Online && sc.LastSeenAt != nil && sc.LastSeenAt.Before(cutoff) {
			count++
			if !dryRun {
				sc.Online = false
			}
		}
	}

	return count, nil
}

func applyLocation(lat, lon **float64, loc *registry.Location) {
	if loc == nil {
		return
	}
	if loc.Latitude != nil {
		val := *loc.Latitude
		*lat = &val
	}
	if loc.Longitude != nil {
		val := *loc.Longitude
		*lon = &val
	}
}
