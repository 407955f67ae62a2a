package organizations

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tsdip/backend/internal/apperr"
	"github.com/tsdip/backend/internal/identity"
	"github.com/tsdip/backend/internal/models"
	"github.com/tsdip/backend/internal/permissions"
	"github.com/tsdip/backend/pkg/database"
	"github.com/tsdip/backend/pkg/queue"
)

type fakeStore struct {
	orgs     map[uuid.UUID]*models.Organization
	socials  map[uuid.UUID]*models.Social
	users    map[uuid.UUID]*models.User
	orgReqs  []*models.RequestOrgLog
	memReqs  []*models.RequestMemberLog
	perms    []*models.Permission
	roles    map[uuid.UUID]*models.Role
	grants   map[uuid.UUID]uuid.UUID // userID -> roleID
	revoked  map[uuid.UUID]bool      // userID
	failWith error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		orgs:    make(map[uuid.UUID]*models.Organization),
		socials: make(map[uuid.UUID]*models.Social),
		users:   make(map[uuid.UUID]*models.User),
		roles:   make(map[uuid.UUID]*models.Role),
		grants:  make(map[uuid.UUID]uuid.UUID),
		revoked: make(map[uuid.UUID]bool),
	}
}

func (f *fakeStore) WithTx(q database.Querier) Store { return f }

func (f *fakeStore) CreateOrganization(ctx context.Context, org *models.Organization) error {
	if f.failWith != nil {
		return f.failWith
	}
	org.ID = uuid.New()
	f.orgs[org.ID] = org
	return nil
}

func (f *fakeStore) FindOrganization(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	return f.orgs[id], nil
}

func (f *fakeStore) UpdateOrganization(ctx context.Context, org *models.Organization) error {
	f.orgs[org.ID] = org
	return nil
}

func (f *fakeStore) SetOrganizationApproved(ctx context.Context, orgID, approverID uuid.UUID, at time.Time) error {
	org := f.orgs[orgID]
	org.ApprovedAt = &at
	org.ApproverID = &approverID
	return nil
}

func (f *fakeStore) SoftDeleteOrganization(ctx context.Context, orgID uuid.UUID, at time.Time) error {
	f.orgs[orgID].DeletedAt = &at
	return nil
}

func (f *fakeStore) CreateSocial(ctx context.Context, s *models.Social) error {
	s.ID = uuid.New()
	f.socials[s.ID] = s
	return nil
}

func (f *fakeStore) UpdateSocial(ctx context.Context, s *models.Social) error {
	f.socials[s.ID] = s
	return nil
}

func (f *fakeStore) FindSocial(ctx context.Context, id uuid.UUID) (*models.Social, error) {
	return f.socials[id], nil
}

func (f *fakeStore) SoftDeleteSocial(ctx context.Context, id uuid.UUID, at time.Time) error {
	if s, ok := f.socials[id]; ok {
		s.DeletedAt = &at
	}
	return nil
}

func (f *fakeStore) CreateOrgRequest(ctx context.Context, log *models.RequestOrgLog) error {
	log.ID = uuid.New()
	log.CreatedAt = time.Now()
	f.orgReqs = append(f.orgReqs, log)
	return nil
}

func (f *fakeStore) FindPendingOrgRequest(ctx context.Context, orgID uuid.UUID, reqType string) (*models.RequestOrgLog, error) {
	for _, r := range f.orgReqs {
		if r.OrgID == orgID && r.ReqType == reqType && r.ApproveAt == nil && r.DeletedAt == nil {
			return r, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) FindPendingOrgRequestByApplicant(ctx context.Context, orgID uuid.UUID, reqType string, applicantID uuid.UUID) (*models.RequestOrgLog, error) {
	for _, r := range f.orgReqs {
		if r.OrgID == orgID && r.ReqType == reqType && r.ApplicantID == applicantID && r.ApproveAt == nil && r.DeletedAt == nil {
			return r, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) ApproveOrgRequest(ctx context.Context, requestID, approverID uuid.UUID, at time.Time) error {
	for _, r := range f.orgReqs {
		if r.ID == requestID {
			r.ApproveAt = &at
			r.ApproverID = &approverID
		}
	}
	return nil
}

func (f *fakeStore) SoftDeleteOrgRequests(ctx context.Context, orgID uuid.UUID, at time.Time) error {
	for _, r := range f.orgReqs {
		if r.OrgID == orgID {
			r.DeletedAt = &at
		}
	}
	return nil
}

func (f *fakeStore) CreateMemberRequest(ctx context.Context, log *models.RequestMemberLog) error {
	log.ID = uuid.New()
	f.memReqs = append(f.memReqs, log)
	return nil
}

func (f *fakeStore) FindUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return f.users[id], nil
}

func (f *fakeStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) CreatePermission(ctx context.Context, p *models.Permission) error {
	p.ID = uuid.New()
	f.perms = append(f.perms, p)
	return nil
}

func (f *fakeStore) CreateRole(ctx context.Context, role *models.Role) error {
	role.ID = uuid.New()
	f.roles[role.ID] = role
	return nil
}

func (f *fakeStore) GrantRole(ctx context.Context, userID, roleID uuid.UUID) error {
	f.grants[userID] = roleID
	return nil
}

func (f *fakeStore) FindMemberRole(ctx context.Context, userID, orgID uuid.UUID) (*models.Role, error) {
	roleID, ok := f.grants[userID]
	if !ok || f.revoked[userID] {
		return nil, nil
	}
	role := f.roles[roleID]
	if role == nil || role.OrgID != orgID {
		return nil, nil
	}
	return role, nil
}

func (f *fakeStore) RevokeRole(ctx context.Context, userID, roleID uuid.UUID, at time.Time) error {
	f.revoked[userID] = true
	return nil
}

func (f *fakeStore) FindActiveRole(ctx context.Context, userID, orgID uuid.UUID) (*models.Role, error) {
	return f.FindMemberRole(ctx, userID, orgID)
}

func (f *fakeStore) ListForUser(ctx context.Context, userID uuid.UUID, orgType string, limit, offset int) ([]OrgWithRole, error) {
	return nil, nil
}

func (f *fakeStore) ListReviewing(ctx context.Context, userID uuid.UUID, orgType string, limit, offset int) ([]ReviewingOrg, error) {
	return nil, nil
}

func (f *fakeStore) ListMembers(ctx context.Context, orgID uuid.UUID) ([]Member, error) {
	return nil, nil
}

type fakeTx struct{}

func (fakeTx) InTx(ctx context.Context, fn func(q database.Querier) error) error { return fn(nil) }

type fakeQueue struct {
	sent []queue.EmailPayload
	err  error
}

func (f *fakeQueue) EnqueueEmail(ctx context.Context, p queue.EmailPayload) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, p)
	return nil
}

func newTestService(store *fakeStore) (*Service, *fakeQueue) {
	q := &fakeQueue{}
	return NewService(store, fakeTx{}, permissions.NewResolver(store), q, nil), q
}

func seedUser(store *fakeStore, email string) *models.User {
	u := &models.User{ID: uuid.New(), Email: email, Username: email}
	store.users[u.ID] = u
	return u
}

func seedOrg(store *fakeStore, approved bool) *models.Organization {
	org := &models.Organization{ID: uuid.New(), Name: "swing city", OrgType: models.OrgTypeStudio}
	if approved {
		now := time.Now()
		org.ApprovedAt = &now
	}
	store.orgs[org.ID] = org
	return org
}

func grantRole(store *fakeStore, userID, orgID uuid.UUID, name string) {
	role := &models.Role{ID: uuid.New(), Name: name, OrgID: orgID}
	store.roles[role.ID] = role
	store.grants[userID] = role.ID
}

func TestCreateOrganizationByUserIsPending(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store)
	user := seedUser(store, "dancer@example.com")

	org, err := svc.CreateOrganization(context.Background(), identity.UserActor(user.ID), CreateOrgParams{
		Name:    "Swing City",
		OrgType: models.OrgTypeStudio,
	})
	if err != nil {
		t.Fatalf("CreateOrganization: %v", err)
	}
	if org.Approved() {
		t.Error("user-created org must not be approved")
	}
	if org.CreatorID == nil || *org.CreatorID != user.ID {
		t.Error("creator not recorded")
	}
	if len(store.orgReqs) != 1 {
		t.Fatalf("expected 1 request log, got %d", len(store.orgReqs))
	}
	req := store.orgReqs[0]
	if req.ReqType != models.ReqApplyOrg || req.ApplicantID != user.ID || req.ApproveAt != nil {
		t.Errorf("unexpected request log: %+v", req)
	}
}

func TestCreateOrganizationByManagerApprovedImmediately(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store)
	managerID := uuid.New()

	org, err := svc.CreateOrganization(context.Background(), identity.ManagerActor(managerID), CreateOrgParams{
		Name:    "Studio One",
		OrgType: models.OrgTypeDanceGroup,
	})
	if err != nil {
		t.Fatalf("CreateOrganization: %v", err)
	}
	if !org.Approved() {
		t.Error("manager-created org must be approved at once")
	}
	if org.ApproverID == nil || *org.ApproverID != managerID {
		t.Error("approver not recorded")
	}
	if len(store.orgReqs) != 0 {
		t.Errorf("manager creation must not write a request log, got %d", len(store.orgReqs))
	}
}

func TestCreateOrganizationRejectsBadType(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store)

	_, err := svc.CreateOrganization(context.Background(), identity.UserActor(uuid.New()), CreateOrgParams{
		Name:    "Nope",
		OrgType: "gym",
	})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestClaimOrganization(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store)
	user := seedUser(store, "claimer@example.com")
	org := seedOrg(store, true)
	actor := identity.UserActor(user.ID)

	req, err := svc.ClaimOrganization(context.Background(), actor, org.ID)
	if err != nil {
		t.Fatalf("ClaimOrganization: %v", err)
	}
	if req.ReqType != models.ReqClaimOrg || req.ApplicantID != user.ID {
		t.Errorf("unexpected claim log: %+v", req)
	}

	again, err := svc.ClaimOrganization(context.Background(), actor, org.ID)
	if err != nil {
		t.Fatalf("repeated claim: %v", err)
	}
	if again.ID != req.ID {
		t.Error("pending claim must not be duplicated")
	}
	if len(store.orgReqs) != 1 {
		t.Errorf("expected 1 claim log, got %d", len(store.orgReqs))
	}

	if err := svc.ApproveOrganization(context.Background(), identity.ManagerActor(uuid.New()), org.ID, models.ReqClaimOrg); err != nil {
		t.Fatalf("approve claim: %v", err)
	}
	role, _ := store.FindMemberRole(context.Background(), user.ID, org.ID)
	if role == nil || role.Name != models.RoleOwner {
		t.Errorf("claimant did not receive owner role, got %+v", role)
	}
}

func TestClaimOrganizationDedupsPerApplicant(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store)
	first := seedUser(store, "first@example.com")
	second := seedUser(store, "second@example.com")
	org := seedOrg(store, true)

	if _, err := svc.ClaimOrganization(context.Background(), identity.UserActor(first.ID), org.ID); err != nil {
		t.Fatalf("first user claim: %v", err)
	}
	secondReq, err := svc.ClaimOrganization(context.Background(), identity.UserActor(second.ID), org.ID)
	if err != nil {
		t.Fatalf("second user claim: %v", err)
	}
	repeat, err := svc.ClaimOrganization(context.Background(), identity.UserActor(second.ID), org.ID)
	if err != nil {
		t.Fatalf("second user repeated claim: %v", err)
	}
	if repeat.ID != secondReq.ID {
		t.Error("repeated claim must return the user's own pending request")
	}

	var pendingBySecond int
	for _, r := range store.orgReqs {
		if r.ApplicantID == second.ID && r.ApproveAt == nil {
			pendingBySecond++
		}
	}
	if pendingBySecond != 1 {
		t.Errorf("second user has %d pending claims, want 1", pendingBySecond)
	}
	if len(store.orgReqs) != 2 {
		t.Errorf("expected one pending claim per applicant, got %d logs", len(store.orgReqs))
	}
}

func TestApproveOrganization(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store)
	user := seedUser(store, "owner@example.com")
	org := seedOrg(store, false)
	store.orgReqs = append(store.orgReqs, &models.RequestOrgLog{
		ID: uuid.New(), ReqType: models.ReqApplyOrg, OrgID: org.ID, ApplicantID: user.ID,
	})
	managerID := uuid.New()

	if err := svc.ApproveOrganization(context.Background(), identity.ManagerActor(managerID), org.ID, models.ReqApplyOrg); err != nil {
		t.Fatalf("ApproveOrganization: %v", err)
	}
	if !org.Approved() {
		t.Error("organization not stamped approved")
	}
	if store.orgReqs[0].ApproveAt == nil {
		t.Error("request log not stamped approved")
	}
	role, _ := store.FindMemberRole(context.Background(), user.ID, org.ID)
	if role == nil || role.Name != models.RoleOwner {
		t.Errorf("applicant did not receive owner role, got %+v", role)
	}
	if len(store.perms) != 1 || !store.perms[0].ManageMember {
		t.Error("owner permission bundle missing manage_member")
	}
}

func TestApproveOrganizationTwiceFails(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store)
	user := seedUser(store, "owner@example.com")
	org := seedOrg(store, false)
	store.orgReqs = append(store.orgReqs, &models.RequestOrgLog{
		ID: uuid.New(), ReqType: models.ReqApplyOrg, OrgID: org.ID, ApplicantID: user.ID,
	})
	manager := identity.ManagerActor(uuid.New())

	if err := svc.ApproveOrganization(context.Background(), manager, org.ID, models.ReqApplyOrg); err != nil {
		t.Fatalf("first approve: %v", err)
	}
	err := svc.ApproveOrganization(context.Background(), manager, org.ID, models.ReqApplyOrg)
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("second approve: expected not found, got %v", err)
	}
}

func TestApproveOrganizationRequiresManager(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store)
	org := seedOrg(store, false)

	err := svc.ApproveOrganization(context.Background(), identity.UserActor(uuid.New()), org.ID, models.ReqApplyOrg)
	if apperr.KindOf(err) != apperr.KindPermissionDenied {
		t.Fatalf("expected permission denied, got %v", err)
	}
}

func TestInviteMemberByUserID(t *testing.T) {
	store := newFakeStore()
	svc, q := newTestService(store)
	owner := seedUser(store, "owner@example.com")
	invitee := seedUser(store, "friend@example.com")
	org := seedOrg(store, true)
	grantRole(store, owner.ID, org.ID, models.RoleOwner)

	log, err := svc.InviteMember(context.Background(), identity.UserActor(owner.ID), org.ID, InviteParams{UserID: &invitee.ID})
	if err != nil {
		t.Fatalf("InviteMember: %v", err)
	}
	if log.ReqType != models.ReqInviteExistMember {
		t.Errorf("req_type = %q, want invite_exist_member", log.ReqType)
	}
	if log.InviteeID == nil || *log.InviteeID != invitee.ID {
		t.Error("invitee not recorded")
	}
	if len(q.sent) != 1 || q.sent[0].RecipientEmail != invitee.Email {
		t.Errorf("unexpected email queue state: %+v", q.sent)
	}
}

func TestInviteMemberByKnownEmail(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store)
	owner := seedUser(store, "owner@example.com")
	invitee := seedUser(store, "friend@example.com")
	org := seedOrg(store, true)
	grantRole(store, owner.ID, org.ID, models.RoleOwner)

	email := "Friend@Example.com"
	log, err := svc.InviteMember(context.Background(), identity.UserActor(owner.ID), org.ID, InviteParams{Email: &email})
	if err != nil {
		t.Fatalf("InviteMember: %v", err)
	}
	if log.ReqType != models.ReqInviteExistMember {
		t.Errorf("req_type = %q, want invite_exist_member for registered address", log.ReqType)
	}
	if log.InviteeID == nil || *log.InviteeID != invitee.ID {
		t.Error("registered address must resolve to the existing user")
	}
}

func TestInviteMemberByUnknownEmail(t *testing.T) {
	store := newFakeStore()
	svc, q := newTestService(store)
	owner := seedUser(store, "owner@example.com")
	org := seedOrg(store, true)
	grantRole(store, owner.ID, org.ID, models.RoleOwner)

	email := "Newbie@Example.com"
	log, err := svc.InviteMember(context.Background(), identity.UserActor(owner.ID), org.ID, InviteParams{Email: &email})
	if err != nil {
		t.Fatalf("InviteMember: %v", err)
	}
	if log.ReqType != models.ReqInviteMember {
		t.Errorf("req_type = %q, want invite_member", log.ReqType)
	}
	if log.Email == nil || *log.Email != "newbie@example.com" {
		t.Errorf("email not casefolded: %v", log.Email)
	}
	if len(q.sent) != 1 {
		t.Fatalf("expected 1 queued email, got %d", len(q.sent))
	}
}

func TestInviteMemberEnqueueFailureIsSwallowed(t *testing.T) {
	store := newFakeStore()
	svc, q := newTestService(store)
	q.err = errors.New("redis down")
	owner := seedUser(store, "owner@example.com")
	org := seedOrg(store, true)
	grantRole(store, owner.ID, org.ID, models.RoleOwner)

	email := "newbie@example.com"
	log, err := svc.InviteMember(context.Background(), identity.UserActor(owner.ID), org.ID, InviteParams{Email: &email})
	if err != nil {
		t.Fatalf("InviteMember must not fail when the mail queue is down: %v", err)
	}
	if len(store.memReqs) != 1 || log == nil {
		t.Error("invite request log must still be written")
	}
}

func TestInviteMemberValidation(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store)
	org := seedOrg(store, true)
	email := "a@b.c"
	id := uuid.New()

	cases := []InviteParams{
		{},
		{UserID: &id, Email: &email},
	}
	for _, params := range cases {
		_, err := svc.InviteMember(context.Background(), identity.ManagerActor(uuid.New()), org.ID, params)
		if apperr.KindOf(err) != apperr.KindValidation {
			t.Errorf("params %+v: expected validation error, got %v", params, err)
		}
	}
}

func TestInviteMemberRequiresElevatedRole(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store)
	viewer := seedUser(store, "viewer@example.com")
	invitee := seedUser(store, "friend@example.com")
	org := seedOrg(store, true)
	grantRole(store, viewer.ID, org.ID, models.RoleViewer)

	_, err := svc.InviteMember(context.Background(), identity.UserActor(viewer.ID), org.ID, InviteParams{UserID: &invitee.ID})
	if apperr.KindOf(err) != apperr.KindPermissionDenied {
		t.Fatalf("expected permission denied for viewer, got %v", err)
	}
}

func TestRemoveMember(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store)
	member := seedUser(store, "member@example.com")
	org := seedOrg(store, true)
	grantRole(store, member.ID, org.ID, models.RoleViewer)

	manager := identity.ManagerActor(uuid.New())
	if err := svc.RemoveMember(context.Background(), manager, org.ID, member.ID); err != nil {
		t.Fatalf("RemoveMember: %v", err)
	}
	if !store.revoked[member.ID] {
		t.Error("role not revoked")
	}
	if len(store.memReqs) != 1 || store.memReqs[0].ReqType != models.ReqRemoveMember {
		t.Errorf("remove_member request log missing: %+v", store.memReqs)
	}

	err := svc.RemoveMember(context.Background(), manager, org.ID, member.ID)
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("removing a non-member: expected not found, got %v", err)
	}
}

func TestDeleteOrganizationCascades(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store)
	org := seedOrg(store, true)
	social := &models.Social{ID: uuid.New()}
	store.socials[social.ID] = social
	org.SocialID = &social.ID
	store.orgReqs = append(store.orgReqs, &models.RequestOrgLog{
		ID: uuid.New(), ReqType: models.ReqApplyOrg, OrgID: org.ID,
	})

	if err := svc.DeleteOrganization(context.Background(), identity.ManagerActor(uuid.New()), org.ID); err != nil {
		t.Fatalf("DeleteOrganization: %v", err)
	}
	if org.DeletedAt == nil || social.DeletedAt == nil || store.orgReqs[0].DeletedAt == nil {
		t.Fatal("cascade soft-delete incomplete")
	}
	if !org.DeletedAt.Equal(*social.DeletedAt) || !org.DeletedAt.Equal(*store.orgReqs[0].DeletedAt) {
		t.Error("cascade must share one timestamp")
	}
}

func TestUpdateOrganizationNotFound(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store)

	err := svc.UpdateOrganization(context.Background(), identity.ManagerActor(uuid.New()), uuid.New(), UpdateOrgParams{})
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
