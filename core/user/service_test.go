package user

import (
	"context"
	"net/mail"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushub/backend/core"
)

type fakeUserRepo struct {
	Repository

	users map[string]User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]User)}
}

func (r *fakeUserRepo) CreateUser(_ context.Context, usr User) (User, error) {
	usr.ID = "usr" + string(rune('1'+len(r.users)))
	r.users[usr.ID] = usr
	return usr, nil
}

func (r *fakeUserRepo) GetUser(_ context.Context, filter GetFilter) (User, error) {
	for _, usr := range r.users {
		switch {
		case filter.ID != "":
			if usr.ID == filter.ID {
				return usr, nil
			}
		case filter.Username != "":
			if usr.Username == filter.Username {
				return usr, nil
			}
		case filter.Email != "":
			if usr.Email == filter.Email {
				return usr, nil
			}
		case len(filter.UsernameOrEmail) == 2:
			if usr.Username == filter.UsernameOrEmail[0] || usr.Email == filter.UsernameOrEmail[1] {
				return usr, nil
			}
		}
	}
	return User{}, ErrNotFound
}

func (r *fakeUserRepo) UpdateUser(_ context.Context, usr User) (User, error) {
	if _, ok := r.users[usr.ID]; !ok {
		return User{}, ErrNotFound
	}
	r.users[usr.ID] = usr
	return usr, nil
}

type fakeMailSvc struct {
	sent []*core.EmailMessage
}

func (svc *fakeMailSvc) SendMessages(messages ...*core.EmailMessage) {
	svc.sent = append(svc.sent, messages...)
}

func newTestService(repo *fakeUserRepo, mailSvc *fakeMailSvc) *Service {
	if repo == nil {
		repo = newFakeUserRepo()
	}
	if mailSvc == nil {
		mailSvc = &fakeMailSvc{}
	}
	conf := &core.Config{
		AppName:                   "CampusHub",
		SecretKey:                 "poof",
		PasswordResetTimeoutDelta: time.Hour,
	}
	return NewService(repo, mailSvc, conf)
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	repo := newFakeUserRepo()
	mailSvc := &fakeMailSvc{}
	svc := newTestService(repo, mailSvc)

	usr, err := svc.Create(ctx, NewUser{
		Username:        "awe",
		Email:           "awe@test.cd",
		Password:        "LePass123",
		PasswordConfirm: "LePass123",
	})
	require.NoError(t, err)

	assert.Equal(t, RoleStudent, usr.Role, "role defaults to student")
	require.NotNil(t, usr.IsActive)
	assert.True(t, *usr.IsActive)
	assert.NoError(t, usr.CheckPassword("LePass123"))
	assert.Error(t, usr.CheckPassword("nope"))

	require.Len(t, mailSvc.sent, 1)
	msg := mailSvc.sent[0]
	assert.Equal(t, "welcome", msg.TemplateName)
	assert.Equal(t, []mail.Address{{Address: "awe@test.cd"}}, msg.To)
}

func TestPasswordReset(t *testing.T) {
	ctx := context.Background()
	repo := newFakeUserRepo()
	mailSvc := &fakeMailSvc{}
	svc := newTestService(repo, mailSvc)

	usr, err := svc.Create(ctx, NewUser{
		Username:        "king",
		Email:           "king@test.cd",
		Password:        "LePass123",
		PasswordConfirm: "LePass123",
	})
	require.NoError(t, err)
	mailSvc.sent = nil

	require.NoError(t, svc.RequestPasswordReset(ctx, usr.Email))
	require.Len(t, mailSvc.sent, 1)
	data, ok := mailSvc.sent[0].TemplateData.(struct {
		User  User
		UID   string
		Token string
	})
	require.True(t, ok, "unexpected template data %T", mailSvc.sent[0].TemplateData)

	t.Run("bad token", func(t *testing.T) {
		err := svc.ResetPassword(ctx, ResetUserPassword{
			UID:             data.UID,
			Token:           "lol",
			Password:        "NewPass456",
			PasswordConfirm: "NewPass456",
		})
		require.Error(t, err)
		_, ok := err.(*core.ValidationError)
		assert.True(t, ok, "want *core.ValidationError, got %T", err)
	})

	t.Run("good token", func(t *testing.T) {
		err := svc.ResetPassword(ctx, ResetUserPassword{
			UID:             data.UID,
			Token:           data.Token,
			Password:        "NewPass456",
			PasswordConfirm: "NewPass456",
		})
		require.NoError(t, err)

		refreshed, err := svc.GetByID(ctx, usr.ID)
		require.NoError(t, err)
		assert.NoError(t, refreshed.CheckPassword("NewPass456"))
	})

	t.Run("unknown email", func(t *testing.T) {
		err := svc.RequestPasswordReset(ctx, "ghost@test.cd")
		assert.Equal(t, ErrNotFound, err)
	})

	t.Run("deactivated account", func(t *testing.T) {
		usr.SetActive(false)
		_, err := repo.UpdateUser(ctx, usr)
		require.NoError(t, err)

		err = svc.RequestPasswordReset(ctx, usr.Email)
		assert.Equal(t, ErrNotFound, err)
	})
}
