package server

import (
	"context"
	"errors"
	"strings"
)

// Claim outcome sentinels, mapped to HTTP responses by handleClaim.
var (
	errClaimRateLimited   = errors.New("claim rate limited")
	errClaimMissingCode   = errors.New("claim code missing")
	errClaimInvalidFormat = errors.New("claim code format invalid")
	errClaimWrongLength   = errors.New("claim code wrong length")
	errClaimCodeNotFound  = errors.New("claim code not found")
	errClaimAlreadyFound  = errors.New("claim already recorded")
)

type claimResult struct {
	SpotID     string
	SpotName   string
	FoundAt    string
	TotalFinds int
}

type claimState struct {
	actorID string
	raw     string
	code    string
	spot    Spot
	result  claimResult
}

type claimStep struct {
	name string
	run  func(ctx context.Context, st *claimState) error
}

// ClaimPipeline runs a claim attempt through a fixed, ordered list of
// checks. The order is part of the contract: rate limiting is charged
// before any input is inspected, and lookup failures for unknown and
// inactive codes are indistinguishable to the caller.
type ClaimPipeline struct {
	store   Store
	limiter AttemptLimiter
	steps   []claimStep
}

func newClaimPipeline(store Store, limiter AttemptLimiter) *ClaimPipeline {
	p := &ClaimPipeline{store: store, limiter: limiter}
	p.steps = []claimStep{
		{"rate", p.checkRate},
		{"presence", p.checkPresence},
		{"format", p.checkFormat},
		{"length", p.checkLength},
		{"lookup", p.lookupSpot},
		{"duplicate", p.checkDuplicate},
		{"commit", p.commit},
	}
	return p
}

func (p *ClaimPipeline) Claim(ctx context.Context, actorID, rawCode string) (claimResult, error) {
	st := &claimState{actorID: actorID, raw: rawCode}
	for _, step := range p.steps {
		if err := step.run(ctx, st); err != nil {
			return claimResult{}, err
		}
	}
	return st.result, nil
}

func (p *ClaimPipeline) checkRate(ctx context.Context, st *claimState) error {
	if !p.limiter.Allow(ctx, st.actorID) {
		return errClaimRateLimited
	}
	return nil
}

func (p *ClaimPipeline) checkPresence(_ context.Context, st *claimState) error {
	trimmed := strings.TrimSpace(st.raw)
	if trimmed == "" {
		return errClaimMissingCode
	}
	st.code = strings.ToUpper(trimmed)
	return nil
}

func (p *ClaimPipeline) checkFormat(_ context.Context, st *claimState) error {
	for _, c := range st.code {
		if !strings.ContainsRune(codeAlphabet, c) {
			return errClaimInvalidFormat
		}
	}
	return nil
}

func (p *ClaimPipeline) checkLength(_ context.Context, st *claimState) error {
	if len(st.code) != codeLength {
		return errClaimWrongLength
	}
	return nil
}

// lookupSpot reports the same failure for a code that does not exist
// and a code whose spot was deactivated, so probing responses cannot
// be used to enumerate real codes.
func (p *ClaimPipeline) lookupSpot(ctx context.Context, st *claimState) error {
	spot, err := p.store.SpotByCode(ctx, st.code)
	if errors.Is(err, ErrNotFound) {
		return errClaimCodeNotFound
	}
	if err != nil {
		return err
	}
	if !spot.IsActive {
		return errClaimCodeNotFound
	}
	st.spot = spot
	return nil
}

// checkDuplicate is a fast path only; the commit step's conflict
// handling is the real arbiter when two claims race.
func (p *ClaimPipeline) checkDuplicate(ctx context.Context, st *claimState) error {
	found, err := p.store.HasFind(ctx, st.spot.ID, st.actorID)
	if err != nil {
		return err
	}
	if found {
		return errClaimAlreadyFound
	}
	return nil
}

func (p *ClaimPipeline) commit(ctx context.Context, st *claimState) error {
	foundAt, err := p.store.CreateFind(ctx, st.spot.ID, st.actorID)
	if errors.Is(err, ErrAlreadyFound) {
		return errClaimAlreadyFound
	}
	if err != nil {
		return err
	}

	total, err := p.store.FindCount(ctx, st.spot.ID)
	if err != nil {
		return err
	}

	st.result = claimResult{
		SpotID:     st.spot.ID,
		SpotName:   st.spot.Name,
		FoundAt:    foundAt,
		TotalFinds: total,
	}
	return nil
}
