package application

import (
	"context"
	"strings"

	domainerrors "quill/contexts/transfer-agent/authorization-gateway/domain/errors"
	"quill/contexts/transfer-agent/authorization-gateway/ports"
)

// requireSelf gates the self-governance entry points: only the gateway's own
// execute path, calling with the gateway identity, may change the roster or
// the allow-list. Direct external calls always fail.
func (s *Service) requireSelf(caller string) error {
	if strings.TrimSpace(caller) != s.SelfAddress || s.SelfAddress == "" {
		return domainerrors.ErrSelfCallOnly
	}
	return nil
}

// AddMember admits a new signer to the roster.
func (s *Service) AddMember(ctx context.Context, caller, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireSelf(caller); err != nil {
		return err
	}
	member = strings.TrimSpace(member)
	if member == "" {
		return domainerrors.ErrInvalidMember
	}

	roster, err := s.Repo.GetRoster(ctx)
	if err != nil {
		return err
	}
	if !roster.Add(member) {
		return domainerrors.ErrAlreadyMember
	}

	event, err := s.newEnvelope(ctx, EventMemberAdded, "member", member, map[string]any{
		"member":    member,
		"members":   len(roster.Members),
		"threshold": roster.Threshold,
	})
	if err != nil {
		return err
	}
	if _, err := s.Repo.Apply(ctx, ports.Mutation{
		Roster: &roster,
		Events: []ports.EventEnvelope{event},
	}); err != nil {
		return err
	}

	ResolveLogger(s.Logger).Info("roster member added",
		"event", "gateway_member_added",
		"module", "transfer-agent/authorization-gateway",
		"layer", "application",
		"member", member,
		"members", len(roster.Members),
	)
	return nil
}

// RemoveMember drops a signer. Removal that would leave fewer members than
// the current threshold is refused; the threshold must be lowered first.
func (s *Service) RemoveMember(ctx context.Context, caller, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireSelf(caller); err != nil {
		return err
	}
	member = strings.TrimSpace(member)

	roster, err := s.Repo.GetRoster(ctx)
	if err != nil {
		return err
	}
	if !roster.Contains(member) {
		return domainerrors.ErrNotMember
	}
	if len(roster.Members)-1 < roster.Threshold {
		return domainerrors.ErrThresholdUnreachable
	}
	roster.Remove(member)

	event, err := s.newEnvelope(ctx, EventMemberRemoved, "member", member, map[string]any{
		"member":    member,
		"members":   len(roster.Members),
		"threshold": roster.Threshold,
	})
	if err != nil {
		return err
	}
	if _, err := s.Repo.Apply(ctx, ports.Mutation{
		Roster: &roster,
		Events: []ports.EventEnvelope{event},
	}); err != nil {
		return err
	}

	ResolveLogger(s.Logger).Info("roster member removed",
		"event", "gateway_member_removed",
		"module", "transfer-agent/authorization-gateway",
		"layer", "application",
		"member", member,
		"members", len(roster.Members),
	)
	return nil
}

// SetThreshold changes how many confirmations an operation needs.
func (s *Service) SetThreshold(ctx context.Context, caller string, threshold int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireSelf(caller); err != nil {
		return err
	}

	roster, err := s.Repo.GetRoster(ctx)
	if err != nil {
		return err
	}
	if !roster.ValidThreshold(threshold) {
		return domainerrors.ErrInvalidThreshold
	}
	roster.Threshold = threshold

	event, err := s.newEnvelope(ctx, EventThresholdChanged, "threshold", formatID(uint64(threshold)), map[string]any{
		"threshold": threshold,
		"members":   len(roster.Members),
	})
	if err != nil {
		return err
	}
	if _, err := s.Repo.Apply(ctx, ports.Mutation{
		Roster: &roster,
		Events: []ports.EventEnvelope{event},
	}); err != nil {
		return err
	}

	ResolveLogger(s.Logger).Info("threshold changed",
		"event", "gateway_threshold_changed",
		"module", "transfer-agent/authorization-gateway",
		"layer", "application",
		"threshold", threshold,
	)
	return nil
}

// AllowDestination marks an address as pre-vetted so high-value movements to
// it skip the timed hold. Idempotent.
func (s *Service) AllowDestination(ctx context.Context, caller, destination string) error {
	return s.setAllowListed(ctx, caller, destination, true)
}

// DisallowDestination removes an address from the allow-list. Idempotent.
func (s *Service) DisallowDestination(ctx context.Context, caller, destination string) error {
	return s.setAllowListed(ctx, caller, destination, false)
}

func (s *Service) setAllowListed(ctx context.Context, caller, destination string, allowed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireSelf(caller); err != nil {
		return err
	}
	destination = strings.TrimSpace(destination)
	if destination == "" {
		return domainerrors.ErrInvalidMember
	}

	allowList, err := s.Repo.GetAllowList(ctx)
	if err != nil {
		return err
	}
	updated := make([]string, 0, len(allowList)+1)
	present := false
	for _, existing := range allowList {
		if existing == destination {
			present = true
			if !allowed {
				continue
			}
		}
		updated = append(updated, existing)
	}
	if allowed == present {
		return nil
	}
	if allowed {
		updated = append(updated, destination)
	}

	event, err := s.newEnvelope(ctx, EventAllowListChanged, "destination", destination, map[string]any{
		"destination": destination,
		"allowed":     allowed,
	})
	if err != nil {
		return err
	}
	if _, err := s.Repo.Apply(ctx, ports.Mutation{
		AllowList: &updated,
		Events:    []ports.EventEnvelope{event},
	}); err != nil {
		return err
	}

	ResolveLogger(s.Logger).Info("allow-list changed",
		"event", "gateway_allowlist_changed",
		"module", "transfer-agent/authorization-gateway",
		"layer", "application",
		"destination", destination,
		"allowed", allowed,
	)
	return nil
}
