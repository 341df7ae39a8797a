package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/rental-portal/internal/model"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

var permCols = []string{"id", "name", "module", "action", "description", "is_system"}

var roleCols = []string{"r.id", "r.name", "r.description", "r.is_system",
	"p.id", "p.name", "p.module", "p.action", "p.description", "p.is_system"}

func TestPermissionList(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id,name,module,action,description,is_system FROM permissions ORDER BY id")).
		WillReturnRows(sqlmock.NewRows(permCols).
			AddRow(1, "users:view", "users", "view", nil, true).
			AddRow(2, "wishlist:view", "wishlist", "view", "See saved homes", false))

	perms, err := NewPermissionRepo(db).List(context.Background())
	require.NoError(t, err)
	require.Len(t, perms, 2)
	assert.True(t, perms[0].IsSystemPermission)
	assert.Equal(t, "wishlist_view", perms[1].Key())
	assert.Equal(t, "See saved homes", perms[1].Description)
}

func TestPermissionCreateDuplicate(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec("INSERT INTO permissions").
		WithArgs("reports:view", "reports", "view", sqlmock.AnyArg(), false).
		WillReturnError(errors.New("Error 1062: Duplicate entry 'reports-view'"))

	_, err := NewPermissionRepo(db).Create(context.Background(),
		model.Permission{Name: "reports:view", Module: "reports", Action: "view"})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestPermissionDeleteSystemIsForbidden(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("SELECT .* FROM permissions WHERE id=\\?").WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows(permCols).AddRow(1, "users:view", "users", "view", nil, true))

	err := NewPermissionRepo(db).Delete(context.Background(), 1)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestPermissionDeleteRemovesGrants(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("SELECT .* FROM permissions WHERE id=\\?").WithArgs(uint64(9)).
		WillReturnRows(sqlmock.NewRows(permCols).AddRow(9, "reports:view", "reports", "view", nil, false))
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM role_permissions WHERE permission_id=\\?").WithArgs(uint64(9)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM permissions WHERE id=\\?").WithArgs(uint64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, NewPermissionRepo(db).Delete(context.Background(), 9))
}

func TestPermissionUpdateUnknown(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("SELECT .* FROM permissions WHERE id=\\?").WithArgs(uint64(77)).
		WillReturnRows(sqlmock.NewRows(permCols))

	_, err := NewPermissionRepo(db).Update(context.Background(), model.Permission{ID: 77, Module: "x", Action: "y"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRoleForUserGroupsPermissions(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("FROM roles r .* JOIN user_roles ur ON ur.role_id = r.id WHERE ur.user_id = \\?").
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows(roleCols).
			AddRow(1, "Tenant", "Searches", true, 10, "wishlist:view", "wishlist", "view", nil, false).
			AddRow(1, "Tenant", "Searches", true, 11, "messages:view", "messages", "view", nil, false).
			AddRow(4, "Empty", nil, false, nil, nil, nil, nil, nil, nil))

	roles, err := NewRoleRepo(db).ForUser(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, roles, 2)
	assert.Equal(t, "Tenant", roles[0].Name)
	assert.True(t, roles[0].IsSystem)
	require.Len(t, roles[0].Permissions, 2)
	assert.Equal(t, "messages_view", roles[0].Permissions[1].Key())
	assert.Empty(t, roles[1].Permissions)
}

func TestRoleGetByIDNotFound(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("WHERE r.id = \\?").WithArgs(uint64(5)).WillReturnRows(sqlmock.NewRows(roleCols))
	_, err := NewRoleRepo(db).GetByID(context.Background(), 5)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRoleSetPermissionsRollsBackOnUnknownPermission(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("WHERE r.id = \\?").WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows(roleCols).AddRow(5, "Analyst", nil, false, nil, nil, nil, nil, nil, nil))
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM role_permissions WHERE role_id=\\?").WithArgs(uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT 1 FROM permissions WHERE id=\\?").WithArgs(uint64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectExec("INSERT INTO role_permissions").WithArgs(uint64(5), uint64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT 1 FROM permissions WHERE id=\\?").WithArgs(uint64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}))
	mock.ExpectRollback()

	_, err := NewRoleRepo(db).SetPermissions(context.Background(), 5, []uint64{10, 10, 99})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRoleDeleteSystemIsForbidden(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("WHERE r.id = \\?").WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows(roleCols).AddRow(1, "Tenant", nil, true, nil, nil, nil, nil, nil, nil))
	assert.ErrorIs(t, NewRoleRepo(db).Delete(context.Background(), 1), ErrForbidden)
}

func TestUserGetByEmailNormalises(t *testing.T) {
	db, mock := newMock(t)
	now := time.Now().UTC()
	mock.ExpectQuery("FROM users WHERE email=\\?").WithArgs("owner@rental.test").
		WillReturnRows(sqlmock.NewRows([]string{"id", "first_name", "last_name", "email", "password_hash",
			"user_type", "status", "avatar", "created_at", "updated_at"}).
			AddRow(2, "Omar", "Owner", "owner@rental.test", "$2a$hash", "property_listing", "active", nil, now, now))

	u, err := NewUserRepo(db).GetByEmail(context.Background(), "  Owner@Rental.TEST ")
	require.NoError(t, err)
	m := u.Model()
	assert.Equal(t, model.UserTypePropertyListing, m.UserType)
	assert.Equal(t, "Omar Owner", m.DisplayName())
	assert.Empty(t, m.Avatar)
}

func TestSeedSkipsPopulatedDatabase(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM users").WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(3))

	seeded, err := Seed(context.Background(), NewUserRepo(db), NewRoleRepo(db), NewPermissionRepo(db), "pw", 4)
	require.NoError(t, err)
	assert.False(t, seeded)
}
