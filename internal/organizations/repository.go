package organizations

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tsdip/backend/internal/apperr"
	"github.com/tsdip/backend/internal/models"
	"github.com/tsdip/backend/pkg/database"
)

const pgUniqueViolation = "23505"

// Repository handles organization, social, role, and request-log persistence.
type Repository struct {
	db database.Querier
}

// NewRepository creates an organizations repository.
func NewRepository(db database.Querier) *Repository {
	return &Repository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *Repository) WithTx(q database.Querier) Store {
	return &Repository{db: q}
}

// CreateOrganization inserts an organization row.
func (r *Repository) CreateOrganization(ctx context.Context, org *models.Organization) error {
	const q = `INSERT INTO organizations (name, description, address, org_type, approved_at, creator_id, approver_id, social_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, q, org.Name, org.Description, org.Address, org.OrgType,
		org.ApprovedAt, org.CreatorID, org.ApproverID, org.SocialID).
		Scan(&org.ID, &org.CreatedAt, &org.UpdatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return apperr.DuplicateField("ORG_NAME_USED", "organization name has been used")
	}
	return err
}

// FindOrganization returns an active organization by ID, or nil when absent.
func (r *Repository) FindOrganization(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	const q = `SELECT id, name, description, address, org_type, approved_at, published_at,
		creator_id, approver_id, social_id, created_at, updated_at
		FROM organizations WHERE id = $1 AND deleted_at IS NULL`
	var org models.Organization
	err := r.db.QueryRow(ctx, q, id).Scan(&org.ID, &org.Name, &org.Description, &org.Address,
		&org.OrgType, &org.ApprovedAt, &org.PublishedAt, &org.CreatorID, &org.ApproverID,
		&org.SocialID, &org.CreatedAt, &org.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &org, nil
}

// UpdateOrganization persists mutable organization fields.
func (r *Repository) UpdateOrganization(ctx context.Context, org *models.Organization) error {
	const q = `UPDATE organizations
		SET name = $2, description = $3, address = $4, social_id = $5, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`
	_, err := r.db.Exec(ctx, q, org.ID, org.Name, org.Description, org.Address, org.SocialID)
	return err
}

// SetOrganizationApproved stamps the organization's approval.
func (r *Repository) SetOrganizationApproved(ctx context.Context, orgID, approverID uuid.UUID, at time.Time) error {
	const q = `UPDATE organizations SET approved_at = $2, approver_id = $3, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`
	_, err := r.db.Exec(ctx, q, orgID, at, approverID)
	return err
}

// SoftDeleteOrganization marks the organization deleted.
func (r *Repository) SoftDeleteOrganization(ctx context.Context, orgID uuid.UUID, at time.Time) error {
	const q = `UPDATE organizations SET deleted_at = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`
	_, err := r.db.Exec(ctx, q, orgID, at)
	return err
}

// CreateSocial inserts a social row.
func (r *Repository) CreateSocial(ctx context.Context, s *models.Social) error {
	const q = `INSERT INTO socials (address, email, fan_page, instagram, line, telephone, website, youtube)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, q, s.Address, s.Email, s.FanPage, s.Instagram, s.Line,
		s.Telephone, s.Website, s.Youtube).
		Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
}

// UpdateSocial persists mutable social fields.
func (r *Repository) UpdateSocial(ctx context.Context, s *models.Social) error {
	const q = `UPDATE socials
		SET address = $2, email = $3, fan_page = $4, instagram = $5, line = $6, telephone = $7, website = $8, youtube = $9, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`
	_, err := r.db.Exec(ctx, q, s.ID, s.Address, s.Email, s.FanPage, s.Instagram, s.Line,
		s.Telephone, s.Website, s.Youtube)
	return err
}

// FindSocial returns an active social row by ID, or nil when absent.
func (r *Repository) FindSocial(ctx context.Context, id uuid.UUID) (*models.Social, error) {
	const q = `SELECT id, address, email, fan_page, instagram, line, telephone, website, youtube, created_at, updated_at
		FROM socials WHERE id = $1 AND deleted_at IS NULL`
	var s models.Social
	err := r.db.QueryRow(ctx, q, id).Scan(&s.ID, &s.Address, &s.Email, &s.FanPage, &s.Instagram,
		&s.Line, &s.Telephone, &s.Website, &s.Youtube, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// SoftDeleteSocial marks a social row deleted.
func (r *Repository) SoftDeleteSocial(ctx context.Context, id uuid.UUID, at time.Time) error {
	const q = `UPDATE socials SET deleted_at = $2, updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`
	_, err := r.db.Exec(ctx, q, id, at)
	return err
}

// CreateOrgRequest appends an organization request-log row.
func (r *Repository) CreateOrgRequest(ctx context.Context, log *models.RequestOrgLog) error {
	const q = `INSERT INTO request_org_logs (req_type, org_id, applicant_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, q, log.ReqType, log.OrgID, log.ApplicantID).
		Scan(&log.ID, &log.CreatedAt, &log.UpdatedAt)
}

// FindPendingOrgRequest returns the pending request log matching the
// organization and request type, or nil when none.
func (r *Repository) FindPendingOrgRequest(ctx context.Context, orgID uuid.UUID, reqType string) (*models.RequestOrgLog, error) {
	const q = `SELECT id, req_type, org_id, applicant_id, approver_id, approve_at, created_at, updated_at
		FROM request_org_logs
		WHERE org_id = $1 AND req_type = $2 AND approve_at IS NULL AND deleted_at IS NULL
		ORDER BY created_at
		LIMIT 1`
	var log models.RequestOrgLog
	err := r.db.QueryRow(ctx, q, orgID, reqType).Scan(&log.ID, &log.ReqType, &log.OrgID,
		&log.ApplicantID, &log.ApproverID, &log.ApproveAt, &log.CreatedAt, &log.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &log, nil
}

// FindPendingOrgRequestByApplicant returns the applicant's own pending
// request log for the organization, or nil when none.
func (r *Repository) FindPendingOrgRequestByApplicant(ctx context.Context, orgID uuid.UUID, reqType string, applicantID uuid.UUID) (*models.RequestOrgLog, error) {
	const q = `SELECT id, req_type, org_id, applicant_id, approver_id, approve_at, created_at, updated_at
		FROM request_org_logs
		WHERE org_id = $1 AND req_type = $2 AND applicant_id = $3 AND approve_at IS NULL AND deleted_at IS NULL
		ORDER BY created_at
		LIMIT 1`
	var log models.RequestOrgLog
	err := r.db.QueryRow(ctx, q, orgID, reqType, applicantID).Scan(&log.ID, &log.ReqType, &log.OrgID,
		&log.ApplicantID, &log.ApproverID, &log.ApproveAt, &log.CreatedAt, &log.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &log, nil
}

// ApproveOrgRequest stamps a request log with the approver and time.
func (r *Repository) ApproveOrgRequest(ctx context.Context, requestID, approverID uuid.UUID, at time.Time) error {
	const q = `UPDATE request_org_logs SET approve_at = $2, approver_id = $3, updated_at = NOW()
		WHERE id = $1 AND approve_at IS NULL AND deleted_at IS NULL`
	_, err := r.db.Exec(ctx, q, requestID, at, approverID)
	return err
}

// SoftDeleteOrgRequests marks all of the organization's request logs deleted.
func (r *Repository) SoftDeleteOrgRequests(ctx context.Context, orgID uuid.UUID, at time.Time) error {
	const q = `UPDATE request_org_logs SET deleted_at = $2, updated_at = NOW()
		WHERE org_id = $1 AND deleted_at IS NULL`
	_, err := r.db.Exec(ctx, q, orgID, at)
	return err
}

// CreateMemberRequest appends a membership request-log row.
func (r *Repository) CreateMemberRequest(ctx context.Context, log *models.RequestMemberLog) error {
	const q = `INSERT INTO request_member_logs (req_type, email, org_id, inviter_id, invitee_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, q, log.ReqType, log.Email, log.OrgID, log.InviterID, log.InviteeID).
		Scan(&log.ID, &log.CreatedAt, &log.UpdatedAt)
}

// FindUser returns an active user by ID, or nil when absent.
func (r *Repository) FindUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const q = `SELECT id, username, email, phone, created_at, updated_at
		FROM users WHERE id = $1 AND deleted_at IS NULL`
	var u models.User
	err := r.db.QueryRow(ctx, q, id).Scan(&u.ID, &u.Username, &u.Email, &u.Phone, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// FindUserByEmail returns an active user by case-folded email, or nil.
func (r *Repository) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const q = `SELECT id, username, email, phone, created_at, updated_at
		FROM users WHERE email = $1 AND deleted_at IS NULL`
	var u models.User
	err := r.db.QueryRow(ctx, q, email).Scan(&u.ID, &u.Username, &u.Email, &u.Phone, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreatePermission inserts a permission bundle.
func (r *Repository) CreatePermission(ctx context.Context, p *models.Permission) error {
	const q = `INSERT INTO permissions (manage_member) VALUES ($1)
		RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, q, p.ManageMember).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

// CreateRole inserts a role bound to an organization and permission bundle.
func (r *Repository) CreateRole(ctx context.Context, role *models.Role) error {
	const q = `INSERT INTO roles (name, org_id, permission_id) VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, q, role.Name, role.OrgID, role.PermissionID).
		Scan(&role.ID, &role.CreatedAt, &role.UpdatedAt)
}

// GrantRole appends the role to the user's role set.
func (r *Repository) GrantRole(ctx context.Context, userID, roleID uuid.UUID) error {
	const q = `INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)
		ON CONFLICT (user_id, role_id) DO NOTHING`
	_, err := r.db.Exec(ctx, q, userID, roleID)
	return err
}

// FindMemberRole returns the user's active role within the organization,
// or nil when the user is not a member.
func (r *Repository) FindMemberRole(ctx context.Context, userID, orgID uuid.UUID) (*models.Role, error) {
	const q = `SELECT ro.id, ro.name, ro.org_id, ro.permission_id, ro.created_at, ro.updated_at
		FROM user_roles ur
		INNER JOIN roles ro ON ro.id = ur.role_id
		WHERE ur.user_id = $1 AND ro.org_id = $2
			AND ur.deleted_at IS NULL AND ro.deleted_at IS NULL
		ORDER BY ro.created_at
		LIMIT 1`
	var role models.Role
	err := r.db.QueryRow(ctx, q, userID, orgID).
		Scan(&role.ID, &role.Name, &role.OrgID, &role.PermissionID, &role.CreatedAt, &role.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &role, nil
}

// RevokeRole soft-deletes the user's join row for the role.
func (r *Repository) RevokeRole(ctx context.Context, userID, roleID uuid.UUID, at time.Time) error {
	const q = `UPDATE user_roles SET deleted_at = $3, updated_at = NOW()
		WHERE user_id = $1 AND role_id = $2 AND deleted_at IS NULL`
	_, err := r.db.Exec(ctx, q, userID, roleID, at)
	return err
}

// OrgWithRole is an organization joined with the caller's role name.
type OrgWithRole struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	OrgType string    `json:"org_type"`
	Role    string    `json:"role"`
}

// ListForUser returns organizations the user holds an active role in.
func (r *Repository) ListForUser(ctx context.Context, userID uuid.UUID, orgType string, limit, offset int) ([]OrgWithRole, error) {
	q := `SELECT o.id, o.name, o.org_type, ro.name
		FROM user_roles ur
		INNER JOIN roles ro ON ro.id = ur.role_id
		INNER JOIN organizations o ON o.id = ro.org_id
		WHERE ur.user_id = $1
			AND ur.deleted_at IS NULL AND ro.deleted_at IS NULL AND o.deleted_at IS NULL`
	args := []any{userID}
	if orgType != "" {
		q += ` AND o.org_type = $2`
		args = append(args, orgType)
	}
	q += ` ORDER BY o.name DESC LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []OrgWithRole
	for rows.Next() {
		var o OrgWithRole
		if err := rows.Scan(&o.ID, &o.Name, &o.OrgType, &o.Role); err != nil {
			return nil, err
		}
		list = append(list, o)
	}
	return list, rows.Err()
}

// ReviewingOrg is an organization whose approval request by the user is
// still pending.
type ReviewingOrg struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	OrgType string    `json:"org_type"`
	ReqType string    `json:"req_type"`
}

// ListReviewing returns organizations the user applied for that are still
// waiting on a manager.
func (r *Repository) ListReviewing(ctx context.Context, userID uuid.UUID, orgType string, limit, offset int) ([]ReviewingOrg, error) {
	q := `SELECT o.id, o.name, o.org_type, rl.req_type
		FROM request_org_logs rl
		INNER JOIN organizations o ON o.id = rl.org_id
		WHERE rl.applicant_id = $1 AND rl.approve_at IS NULL
			AND rl.deleted_at IS NULL AND o.deleted_at IS NULL`
	args := []any{userID}
	if orgType != "" {
		q += ` AND o.org_type = $2`
		args = append(args, orgType)
	}
	q += ` ORDER BY o.name DESC LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []ReviewingOrg
	for rows.Next() {
		var o ReviewingOrg
		if err := rows.Scan(&o.ID, &o.Name, &o.OrgType, &o.ReqType); err != nil {
			return nil, err
		}
		list = append(list, o)
	}
	return list, rows.Err()
}

// Member is an organization member with user details.
type Member struct {
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	Role     string    `json:"role"`
}

// ListMembers returns active members of an organization.
func (r *Repository) ListMembers(ctx context.Context, orgID uuid.UUID) ([]Member, error) {
	const q = `SELECT u.id, u.username, u.email, ro.name
		FROM user_roles ur
		INNER JOIN roles ro ON ro.id = ur.role_id
		INNER JOIN users u ON u.id = ur.user_id
		WHERE ro.org_id = $1
			AND ur.deleted_at IS NULL AND ro.deleted_at IS NULL AND u.deleted_at IS NULL
		ORDER BY ur.created_at`
	rows, err := r.db.Query(ctx, q, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.UserID, &m.Username, &m.Email, &m.Role); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}
