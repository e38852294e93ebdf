/* Copyright (c) 2025 B Board
 * SPDX-License-Identifier: BSD-3-Clause */
package services

import (
	"context"
	"errors"

	"github.com/macmann/b-board-sub005/internal/domain"
)

// ErrForbidden is returned when a non-member requests a specific project.
var ErrForbidden = errors.New("forbidden")

// resolveScope decides which projects the requesting user may read.
// Leadership (global ADMIN or PO — global role wins over membership role,
// uniformly across reports) sees everything, narrowed to the requested
// project when one was named. Everyone else sees their membership
// projects; naming a project they are not a member of yields an empty
// scope, which the caller surfaces as 403. An empty scope without a named
// project is not an error: downstream fact extraction short-circuits and
// the report comes back empty.
func (s *Service) resolveScope(ctx context.Context, user domain.User, projectID *int64) (domain.Scope, error) {
	if user.IsLeadership() {
		if projectID != nil {
			return domain.ScopeOf(*projectID), nil
		}
		return domain.ScopeAll(), nil
	}
	ids, err := s.store.MemberProjectIDs(ctx, user.ID)
	if err != nil {
		return domain.Scope{}, err
	}
	if projectID != nil {
		member := domain.ScopeOf(ids...)
		if !member.Contains(*projectID) {
			return domain.ScopeOf(), nil
		}
		return domain.ScopeOf(*projectID), nil
	}
	return domain.ScopeOf(ids...), nil
}

// scopeFor wraps resolveScope with the 403 policy: an empty scope is an
// error only when a specific project was requested.
func (s *Service) scopeFor(ctx context.Context, user domain.User, projectID *int64) (domain.Scope, error) {
	scope, err := s.resolveScope(ctx, user, projectID)
	if err != nil {
		return domain.Scope{}, err
	}
	if projectID != nil && scope.IsEmpty() {
		return domain.Scope{}, ErrForbidden
	}
	return scope, nil
}
