package usecase_membership

import (
	"context"
	"strings"
	"testing"
	"time"

	infra_memory_document "github.com/naryasomayaj/group-activity-planner/internal/infra/memory/document"
	"github.com/naryasomayaj/group-activity-planner/internal/model"
	storage_document "github.com/naryasomayaj/group-activity-planner/internal/storage/document"
	storage_planner "github.com/naryasomayaj/group-activity-planner/internal/storage/planner"
	"github.com/ozontech/allure-go/pkg/framework/provider"
	"github.com/ozontech/allure-go/pkg/framework/suite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type UsecaseMembershipUnitSuite struct {
	suite.Suite
}

type publisherMock struct {
	mock.Mock
}

func (m *publisherMock) Publish(ctx context.Context, subject string, data any) error {
	return m.Called(ctx, subject, data).Error(0)
}

type resources struct {
	usecase   *Usecase
	storage   *storage_planner.Storage
	publisher *publisherMock
	ctx       context.Context
}

func initResources(t provider.T) *resources {
	storage := storage_planner.New(storage_document.New(infra_memory_document.New(), 0))
	publisher := &publisherMock{}
	publisher.On("Publish", mock.Anything, model.SubjectGroupCreated, mock.Anything).Return(nil).Maybe()

	return &resources{
		usecase:   New(storage, publisher),
		storage:   storage,
		publisher: publisher,
		ctx:       context.Background(),
	}
}

func (r *resources) mustCreate(t provider.T, name, owner string) model.Group {
	g, err := r.usecase.CreateGroup(r.ctx, name, owner)
	require.NoError(t, err)
	return g
}

func (s *UsecaseMembershipUnitSuite) TestCreateGroup(t provider.T) {
	t.Parallel()

	t.Run("Should reject blank name", func(t provider.T) {
		r := initResources(t)

		_, err := r.usecase.CreateGroup(r.ctx, "   ", "alice")

		assert.ErrorIs(t, err, ErrEmptyName)
		assert.ErrorIs(t, err, model.ErrValidation)
	})

	t.Run("Should create group, code and membership", func(t provider.T) {
		r := initResources(t)

		g := r.mustCreate(t, "  Hikers ", "alice")

		assert.NotEmpty(t, g.ID)
		assert.Equal(t, "Hikers", g.Name)
		assert.Equal(t, []string{"alice"}, g.Members)
		assert.Equal(t, "alice", g.CreatedBy)
		require.Len(t, g.AccessCode, codeLen)
		for _, c := range g.AccessCode {
			assert.True(t, strings.ContainsRune(codeAlphabet, c))
		}

		groupID, err := r.storage.GroupIDByAccessCode(r.ctx, g.AccessCode)
		require.NoError(t, err)
		assert.Equal(t, g.ID, groupID)

		user, err := r.storage.User(r.ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, []string{g.ID}, user.UserGroups)

		r.publisher.AssertCalled(t, "Publish", mock.Anything, model.SubjectGroupCreated,
			model.GroupCreatedEvent{GroupID: g.ID, CreatedBy: "alice"})
	})
}

func (s *UsecaseMembershipUnitSuite) TestAccessCodeFallback(t provider.T) {
	t.Parallel()
	r := initResources(t)

	now := time.UnixMilli(1_700_000_000_123)
	r.usecase.now = func() time.Time { return now }
	calls := 0
	r.usecase.newCode = func() string {
		calls++
		return "TAKEN1"
	}
	require.NoError(t, r.storage.CreateAccessCode(r.ctx, model.AccessCode{Code: "TAKEN1", GroupID: "other"}))

	g := r.mustCreate(t, "Fallback", "alice")

	assert.Equal(t, codeAttempts, calls)
	assert.Equal(t, fallbackCode(now), g.AccessCode)
}

func (s *UsecaseMembershipUnitSuite) TestFallbackCode(t provider.T) {
	t.Parallel()

	code := fallbackCode(time.UnixMilli(1_700_000_000_123))

	assert.Len(t, code, codeLen)
	assert.Equal(t, strings.ToUpper(code), code)
	assert.NotEqual(t, code, fallbackCode(time.UnixMilli(1_700_000_000_124)))
}

func (s *UsecaseMembershipUnitSuite) TestJoinGroup(t provider.T) {
	t.Parallel()

	testCases := []struct {
		name          string
		code          func(g model.Group) string
		caller        string
		expectedError error
	}{
		{name: "Should reject empty code", code: func(model.Group) string { return "  " }, caller: "bob", expectedError: ErrEmptyCode},
		{name: "Should reject unknown code", code: func(model.Group) string { return "ZZZZZZ" }, caller: "bob", expectedError: ErrCodeNotFound},
		{name: "Should reject existing member", code: func(g model.Group) string { return g.AccessCode }, caller: "alice", expectedError: ErrAlreadyMember},
		{name: "Should join with lowercase code", code: func(g model.Group) string { return " " + strings.ToLower(g.AccessCode) }, caller: "bob"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t provider.T) {
			t.Parallel()
			r := initResources(t)
			created := r.mustCreate(t, "Trip", "alice")

			g, err := r.usecase.JoinGroup(r.ctx, tc.code(created), tc.caller)

			if tc.expectedError != nil {
				assert.ErrorIs(t, err, tc.expectedError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []string{"alice", "bob"}, g.Members)

			user, err := r.storage.User(r.ctx, "bob")
			require.NoError(t, err)
			assert.Equal(t, []string{created.ID}, user.UserGroups)

			_, err = r.usecase.JoinGroup(r.ctx, created.AccessCode, "bob")
			assert.ErrorIs(t, err, ErrAlreadyMember)
		})
	}
}

func (s *UsecaseMembershipUnitSuite) TestLeaveGroup(t provider.T) {
	t.Parallel()
	r := initResources(t)
	r.publisher.On("Publish", mock.Anything, model.SubjectGroupDeleted, mock.Anything).Return(nil).Once()

	g := r.mustCreate(t, "Trip", "alice")
	_, err := r.usecase.JoinGroup(r.ctx, g.AccessCode, "bob")
	require.NoError(t, err)

	require.NoError(t, r.usecase.LeaveGroup(r.ctx, g.ID, "alice"))
	left, err := r.storage.Group(r.ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, left.Members)

	alice, err := r.storage.User(r.ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, alice.UserGroups)

	// Leaving twice is harmless.
	require.NoError(t, r.usecase.LeaveGroup(r.ctx, g.ID, "alice"))

	require.NoError(t, r.usecase.LeaveGroup(r.ctx, g.ID, "bob"))
	_, err = r.storage.Group(r.ctx, g.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)

	exists, err := r.storage.AccessCodeExists(r.ctx, g.AccessCode)
	require.NoError(t, err)
	assert.False(t, exists)

	// The group is gone; leaving again still succeeds.
	require.NoError(t, r.usecase.LeaveGroup(r.ctx, g.ID, "bob"))

	r.publisher.AssertNumberOfCalls(t, "Publish", 2)
	r.publisher.AssertCalled(t, "Publish", mock.Anything, model.SubjectGroupDeleted,
		model.GroupDeletedEvent{GroupID: g.ID})
}

func (s *UsecaseMembershipUnitSuite) TestLeaveKeepsReassignedCode(t provider.T) {
	t.Parallel()
	r := initResources(t)
	r.publisher.On("Publish", mock.Anything, model.SubjectGroupDeleted, mock.Anything).Return(nil)

	g := r.mustCreate(t, "Trip", "alice")
	require.NoError(t, r.storage.CreateAccessCode(r.ctx, model.AccessCode{Code: g.AccessCode, GroupID: "another"}))

	require.NoError(t, r.usecase.LeaveGroup(r.ctx, g.ID, "alice"))

	groupID, err := r.storage.GroupIDByAccessCode(r.ctx, g.AccessCode)
	require.NoError(t, err)
	assert.Equal(t, "another", groupID)
}

func (s *UsecaseMembershipUnitSuite) TestPlanLeave(t provider.T) {
	t.Parallel()

	g := model.Group{Members: []string{"a", "b"}}

	assert.Equal(t, model.LeavePlan{Unchanged: true}, planLeave(g, "c"))
	assert.Equal(t, model.LeavePlan{Members: []string{"b"}}, planLeave(g, "a"))
	assert.Equal(t, model.LeavePlan{DeleteGroup: true}, planLeave(model.Group{Members: []string{"a"}}, "a"))
	assert.Equal(t, []string{"a", "b"}, g.Members)
}

func (s *UsecaseMembershipUnitSuite) TestGroupRequiresMembership(t provider.T) {
	t.Parallel()
	r := initResources(t)
	g := r.mustCreate(t, "Trip", "alice")

	_, err := r.usecase.Group(r.ctx, g.ID, "mallory")
	assert.ErrorIs(t, err, ErrNotMember)
	assert.ErrorIs(t, err, model.ErrPermissionDenied)

	_, err = r.usecase.Group(r.ctx, "missing", "alice")
	assert.ErrorIs(t, err, ErrGroupNotFound)

	got, err := r.usecase.Group(r.ctx, g.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, g.ID, got.ID)
}

func (s *UsecaseMembershipUnitSuite) TestMyGroupsAndMembers(t provider.T) {
	t.Parallel()
	r := initResources(t)

	groups, err := r.usecase.MyGroups(r.ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, groups)

	g := r.mustCreate(t, "Trip", "alice")
	require.NoError(t, r.storage.AddUserGroup(r.ctx, "alice", "ghost"))
	require.NoError(t, r.storage.SaveProfile(r.ctx, model.User{ID: "alice", FirstName: "Alice", LastName: "Liddell"}))
	_, err = r.usecase.JoinGroup(r.ctx, g.AccessCode, "bob")
	require.NoError(t, err)

	groups, err = r.usecase.MyGroups(r.ctx, "alice")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, g.ID, groups[0].ID)

	members, err := r.usecase.Members(r.ctx, g.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, []model.Member{
		{ID: "alice", DisplayName: "Alice Liddell"},
		{ID: "bob", DisplayName: "bob"},
	}, members)
}

func TestUnitSuite(t *testing.T) {
	suite.RunSuite(t, new(UsecaseMembershipUnitSuite))
}
