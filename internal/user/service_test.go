package user

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"storefront-be/internal/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestMain(m *testing.M) {
	passwordCost = bcrypt.MinCost
	os.Exit(m.Run())
}

// MockRepository is a mock implementation of the Repository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, u *User) (*User, error) {
	args := m.Called(ctx, u)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockRepository) FindActiveByEmail(ctx context.Context, email string) (*User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockRepository) GetByID(ctx context.Context, id uint) (*User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

type stubIssuer struct {
	err error
}

func (s stubIssuer) Generate(userID uint, email, role string) (string, time.Time, error) {
	if s.err != nil {
		return "", time.Time{}, s.err
	}
	return "token-" + email + "-" + role, time.Unix(1700000000, 0), nil
}

func registerInput() RegisterInput {
	return RegisterInput{
		FullName:        " Ama Mensah ",
		Email:           "Ama@Example.com",
		Password:        "password123",
		ConfirmPassword: "password123",
		Phone:           "024 123 4567",
	}
}

func TestService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, stubIssuer{})

		repo.On("Create", ctx, mock.MatchedBy(func(u *User) bool {
			return u.FullName == "Ama Mensah" &&
				u.Email == "ama@example.com" &&
				u.Phone == "0241234567" &&
				u.Role == RoleUser &&
				CheckPasswordHash("password123", u.PasswordHash)
		})).Return(&User{ID: 1, Email: "ama@example.com", Role: RoleUser, IsActive: true}, nil)

		res, err := svc.Register(ctx, registerInput())
		require.NoError(t, err)
		assert.Equal(t, "token-ama@example.com-user", res.AccessToken)
		assert.Equal(t, uint(1), res.User.ID)
		repo.AssertExpectations(t)
	})

	t.Run("PasswordMismatch", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, stubIssuer{})

		in := registerInput()
		in.ConfirmPassword = "password124"

		_, err := svc.Register(ctx, in)
		assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
		assert.Contains(t, apperror.FieldsOf(err), "confirmPassword")
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("InvalidPhone", func(t *testing.T) {
		svc := NewService(new(MockRepository), stubIssuer{})
		in := registerInput()
		in.Phone = "+1 555 0100"

		_, err := svc.Register(ctx, in)
		assert.Equal(t, "must be a valid Ghana phone number", apperror.FieldsOf(err)["phone"])
	})

	t.Run("ShortPassword", func(t *testing.T) {
		svc := NewService(new(MockRepository), stubIssuer{})
		in := registerInput()
		in.Password, in.ConfirmPassword = "abc", "abc"

		_, err := svc.Register(ctx, in)
		assert.Contains(t, apperror.FieldsOf(err), "password")
	})

	t.Run("EmailExists", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, stubIssuer{})
		repo.On("Create", ctx, mock.Anything).Return(nil, ErrEmailExists)

		_, err := svc.Register(ctx, registerInput())
		assert.ErrorIs(t, err, ErrEmailExists)
		assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))
	})

	t.Run("TokenFailure", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, stubIssuer{err: errors.New("no secret")})
		repo.On("Create", ctx, mock.Anything).Return(&User{ID: 1, Email: "ama@example.com", Role: RoleUser}, nil)

		_, err := svc.Register(ctx, registerInput())
		assert.Equal(t, apperror.KindInternal, apperror.KindOf(err))
	})
}

func TestService_Login(t *testing.T) {
	ctx := context.Background()
	hash, err := HashPassword("password123")
	require.NoError(t, err)

	t.Run("Success", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, stubIssuer{})
		repo.On("FindActiveByEmail", ctx, "ama@example.com").
			Return(&User{ID: 1, Email: "ama@example.com", PasswordHash: hash, Role: RoleAdmin, IsActive: true}, nil)

		res, err := svc.Login(ctx, LoginInput{Email: " AMA@example.com", Password: "password123"})
		require.NoError(t, err)
		assert.Equal(t, "token-ama@example.com-admin", res.AccessToken)
	})

	t.Run("WrongPassword", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, stubIssuer{})
		repo.On("FindActiveByEmail", ctx, "ama@example.com").
			Return(&User{ID: 1, Email: "ama@example.com", PasswordHash: hash}, nil)

		_, err := svc.Login(ctx, LoginInput{Email: "ama@example.com", Password: "nope"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("UnknownOrInactive", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, stubIssuer{})
		repo.On("FindActiveByEmail", ctx, "gone@example.com").Return(nil, ErrUserNotFound)

		_, err := svc.Login(ctx, LoginInput{Email: "gone@example.com", Password: "password123"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("RepositoryError", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, stubIssuer{})
		repo.On("FindActiveByEmail", ctx, "ama@example.com").Return(nil, errors.New("db down"))

		_, err := svc.Login(ctx, LoginInput{Email: "ama@example.com", Password: "password123"})
		assert.Equal(t, apperror.KindInternal, apperror.KindOf(err))
	})

	t.Run("MissingFields", func(t *testing.T) {
		svc := NewService(new(MockRepository), stubIssuer{})

		_, err := svc.Login(ctx, LoginInput{})
		fields := apperror.FieldsOf(err)
		assert.Contains(t, fields, "email")
		assert.Contains(t, fields, "password")
	})
}

func TestService_GetByID(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	svc := NewService(repo, stubIssuer{})

	repo.On("GetByID", ctx, uint(2)).Return(&User{ID: 2}, nil)
	repo.On("GetByID", ctx, uint(3)).Return(nil, ErrUserNotFound)

	u, err := svc.GetByID(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, uint(2), u.ID)

	_, err = svc.GetByID(ctx, 3)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
