package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/cloudkeep/identity-bridge/internal/core/domain"
	"github.com/cloudkeep/identity-bridge/internal/core/ports"
	"github.com/cloudkeep/identity-bridge/internal/metrics"
)

// DefaultProjectPolicy selects how the reconciler treats users without an
// explicit membership on the default project.
type DefaultProjectPolicy int

const (
	// PolicyNone disables implicit membership entirely.
	PolicyNone DefaultProjectPolicy = iota
	// PolicyImplicit injects the default project into membership and
	// synthesizes default-role grants on read, without persisting them.
	PolicyImplicit
	// PolicyImplicitGrant additionally persists the synthesized grant the
	// first time a directory user resolves it, so later reads and other
	// subsystems see the same authoritative rows.
	PolicyImplicitGrant
)

// Defaults names the configured fallback project, its domain, and the role
// set guaranteeing every directory user minimal access. Unresolvable values
// are a deployment error, fatal to any operation that needs them.
type Defaults struct {
	DomainID    string
	ProjectName string
	RoleNames   []string
}

// Reconciler computes project membership and role grants across both
// stores. Directory users have no native assignments, so the reconciler
// guarantees them membership of the configured default project and at least
// the default role set there.
type Reconciler struct {
	store     ports.AssignmentStore
	users     ports.IdentityResolver
	directory ports.DirectoryStore
	defaults  Defaults
	policy    DefaultProjectPolicy
	log       zerolog.Logger

	// materialize collapses concurrent first-use grant creation; the store
	// upsert keeps it idempotent across processes.
	materialize singleflight.Group

	mu             sync.Mutex
	defaultProject *domain.Project
	defaultRoleIDs []string
}

var _ ports.MembershipReconciler = (*Reconciler)(nil)

func NewReconciler(store ports.AssignmentStore, users ports.IdentityResolver, directory ports.DirectoryStore, defaults Defaults, policy DefaultProjectPolicy, log zerolog.Logger) *Reconciler {
	return &Reconciler{
		store:     store,
		users:     users,
		directory: directory,
		defaults:  defaults,
		policy:    policy,
		log:       log,
	}
}

// ProjectsForUser returns the ids of every project the user belongs to:
// the explicit relational memberships plus the default project. Set
// semantics; a user explicitly on the default project does not see it twice.
func (s *Reconciler) ProjectsForUser(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.store.ListProjectIDsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s.policy == PolicyNone {
		return ids, nil
	}

	def, err := s.resolveDefaultProject(ctx)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		if id == def.ID {
			return ids, nil
		}
	}
	return append(ids, def.ID), nil
}

// ResolveMetadata returns the roles userID holds on projectID. A missing
// grant on the default project is synthesized from the default role set;
// for directory users under PolicyImplicitGrant the synthetic grant is
// persisted on first use via an idempotent upsert. A persisted grant a
// directory user holds on the default project is returned with the default
// role ids unioned in.
func (s *Reconciler) ResolveMetadata(ctx context.Context, userID, projectID string) (*domain.RoleGrant, error) {
	if s.policy == PolicyNone {
		return s.store.FindGrant(ctx, userID, projectID)
	}

	def, err := s.resolveDefaultProject(ctx)
	if err != nil {
		return nil, err
	}
	roleIDs, err := s.resolveDefaultRoles(ctx)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	fromDirectory := user.Source == domain.SourceDirectory

	grant, err := s.store.FindGrant(ctx, userID, projectID)
	switch {
	case err == nil:
		if fromDirectory && projectID == def.ID {
			grant.RoleIDs = unionRoles(grant.RoleIDs, roleIDs)
		}
		return grant, nil

	case errors.Is(err, domain.ErrGrantNotFound):
		if projectID != def.ID {
			return nil, err
		}
		synthetic := domain.RoleGrant{
			UserID:    userID,
			ProjectID: projectID,
			RoleIDs:   append([]string(nil), roleIDs...),
		}
		if fromDirectory && s.policy == PolicyImplicitGrant {
			return s.materializeGrant(ctx, synthetic)
		}
		metrics.GrantSynthesisTotal.WithLabelValues("synthesized").Inc()
		return &synthetic, nil

	default:
		return nil, err
	}
}

// materializeGrant persists the synthetic grant exactly once. Concurrent
// first-use callers are collapsed in-process, and the store-level
// create-if-absent keeps two processes from leaving conflicting rows.
func (s *Reconciler) materializeGrant(ctx context.Context, grant domain.RoleGrant) (*domain.RoleGrant, error) {
	key := grant.UserID + "\x00" + grant.ProjectID
	v, err, _ := s.materialize.Do(key, func() (any, error) {
		stored, err := s.store.CreateOrGetGrant(ctx, grant)
		if err != nil {
			return nil, err
		}
		metrics.GrantSynthesisTotal.WithLabelValues("materialized").Inc()
		s.log.Debug().
			Str("user_id", grant.UserID).
			Str("project_id", grant.ProjectID).
			Msg("materialized default role grant")
		return stored, nil
	})
	if err != nil {
		return nil, err
	}
	out := *v.(*domain.RoleGrant)
	out.RoleIDs = append([]string(nil), out.RoleIDs...)
	return &out, nil
}

// ListRoleAssignments returns every persisted assignment plus synthetic
// default-project rows for directory users that have no assignment at all.
// Linear in the number of directory users; there is no cheaper way to
// enumerate them.
func (s *Reconciler) ListRoleAssignments(ctx context.Context) ([]domain.RoleAssignment, error) {
	assignments, err := s.store.ListAssignments(ctx)
	if err != nil {
		return nil, err
	}
	if s.policy == PolicyNone {
		return assignments, nil
	}

	def, err := s.resolveDefaultProject(ctx)
	if err != nil {
		return nil, err
	}
	roleIDs, err := s.resolveDefaultRoles(ctx)
	if err != nil {
		return nil, err
	}

	assigned := make(map[string]bool, len(assignments))
	for _, a := range assignments {
		assigned[a.UserID] = true
	}

	dirUsers, err := s.directory.ListUsers(ctx, nil)
	if err != nil {
		return nil, err
	}
	for _, u := range dirUsers {
		if assigned[u.ID] {
			continue
		}
		for _, roleID := range roleIDs {
			assignments = append(assignments, domain.RoleAssignment{
				UserID:    u.ID,
				ProjectID: def.ID,
				RoleID:    roleID,
			})
		}
	}
	return assignments, nil
}

// resolveDefaultProject looks the configured default project up by name and
// domain, caching the result after the first success.
func (s *Reconciler) resolveDefaultProject(ctx context.Context) (*domain.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.defaultProject != nil {
		return s.defaultProject, nil
	}

	project, err := s.store.FindProjectByName(ctx, s.defaults.ProjectName, s.defaults.DomainID)
	if err != nil {
		if errors.Is(err, domain.ErrProjectNotFound) {
			return nil, fmt.Errorf("%w: %w: default project %q not found in domain %q",
				domain.ErrMisconfiguredDefaults, domain.ErrProjectNotFound,
				s.defaults.ProjectName, s.defaults.DomainID)
		}
		return nil, err
	}
	s.defaultProject = project
	return project, nil
}

// resolveDefaultRoles resolves every configured default role name to its id,
// caching after the first full success. Any missing role is a configuration
// failure naming the unresolved values.
func (s *Reconciler) resolveDefaultRoles(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.defaultRoleIDs != nil {
		return s.defaultRoleIDs, nil
	}

	ids := make([]string, 0, len(s.defaults.RoleNames))
	var missing []string
	for _, name := range s.defaults.RoleNames {
		role, err := s.store.FindRoleByName(ctx, name)
		if err != nil {
			if errors.Is(err, domain.ErrRoleNotFound) {
				missing = append(missing, name)
				continue
			}
			return nil, err
		}
		ids = append(ids, role.ID)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %w: could not find one or more default roles: %s",
			domain.ErrMisconfiguredDefaults, domain.ErrRoleNotFound, strings.Join(missing, ", "))
	}

	sort.Strings(ids)
	s.defaultRoleIDs = ids
	return ids, nil
}

// unionRoles merges extra into base, preserving base order and dropping
// duplicates.
func unionRoles(base, extra []string) []string {
	seen := make(map[string]bool, len(base)+len(extra))
	out := make([]string, 0, len(base)+len(extra))
	for _, id := range base {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, id := range extra {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
