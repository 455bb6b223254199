package access

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/amorize/checkout-backend/pkg/errors"
	"github.com/amorize/checkout-backend/pkg/logger"
)

// GrantResult reports what a grant call did.
type GrantResult struct {
	// Updated is false when the profile already held every id (no write).
	Updated bool
	// Access is the profile's access set after the call.
	Access []string
	// Degraded is true when kit expansion failed and the original ids were
	// granted unexpanded.
	Degraded bool
}

// Service grants purchased-product access idempotently.
type Service interface {
	GrantProductAccess(ctx context.Context, userID uuid.UUID, productIDs []string) (*GrantResult, error)
}

type service struct {
	repo     Repository
	expander KitExpander
	logg     *logger.Logger
}

// NewService builds an access grant service with the required dependencies.
func NewService(repo Repository, expander KitExpander, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("access repository required")
	}
	if expander == nil {
		return nil, fmt.Errorf("kit expander required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, expander: expander, logg: logg}, nil
}

// GrantProductAccess expands kits one level, unions the result with the
// profile's current access and writes only when something new is granted.
// Expansion failure never aborts the grant; the unexpanded ids are used
// instead.
func (s *service) GrantProductAccess(ctx context.Context, userID uuid.UUID, productIDs []string) (*GrantResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	requested := dedupe(productIDs)
	if len(requested) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one product id required")
	}

	degraded := false
	expanded, err := s.expander.Expand(ctx, requested)
	if err != nil {
		s.logg.Warn(ctx, fmt.Sprintf("kit expansion failed, granting unexpanded ids: %v", err))
		expanded = requested
		degraded = true
	}
	expanded = dedupe(expanded)

	profile, err := s.repo.FindProfileByID(ctx, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load profile")
	}

	if profile.HasAccessTo(expanded) {
		return &GrantResult{Updated: false, Access: profile.Access, Degraded: degraded}, nil
	}

	union := unionSorted(profile.Access, expanded)
	if err := s.repo.ReplaceAccess(ctx, userID, union); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "replace access")
	}

	return &GrantResult{Updated: true, Access: union, Degraded: degraded}, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func unionSorted(current, incoming []string) []string {
	set := make(map[string]struct{}, len(current)+len(incoming))
	for _, id := range current {
		set[id] = struct{}{}
	}
	for _, id := range incoming {
		set[id] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
