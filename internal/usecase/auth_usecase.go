package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"shopapi/internal/domain/model"
	repo "shopapi/internal/repository"
)

type AuthUsecase struct {
	users     repo.UserRepository
	hasher    PasswordHasher
	tokens    TokenIssuer
	validator InputValidator
	log       *zap.Logger
}

func NewAuthUsecase(
	users repo.UserRepository,
	hasher PasswordHasher,
	tokens TokenIssuer,
	validator InputValidator,
	log *zap.Logger,
) *AuthUsecase {
	return &AuthUsecase{
		users:     users,
		hasher:    hasher,
		tokens:    tokens,
		validator: validator,
		log:       log,
	}
}

// POST /register の入力
type RegisterInput struct {
	Name                 string `json:"name" validate:"required,max=255"`
	Email                string `json:"email" validate:"required,email,max=255"`
	Password             string `json:"password" validate:"required,min=8,password_policy,eqfield=PasswordConfirmation"`
	PasswordConfirmation string `json:"password_confirmation"`
	ContactNumber        string `json:"contact_number" validate:"required,min=10,max=30,contact_number"`
	// 指定されても無視する（adminだけは403）
	Role string `json:"role"`
}

// POST /login の入力
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	// X-Admin-Login: true
	AdminLogin bool `json:"-"`
}

type AuthOutput struct {
	User  model.User `json:"user"`
	Token string     `json:"token"`
}

type MessageOutput struct {
	Message string `json:"message"`
}

// Register は一般ユーザーだけ作る。roleは常にuser。
func (u *AuthUsecase) Register(ctx context.Context, in RegisterInput) (AuthOutput, error) {
	//入力チェックより先に弾く
	if strings.EqualFold(strings.TrimSpace(in.Role), string(model.RoleAdmin)) {
		return AuthOutput{}, NewHTTPError(http.StatusForbidden, "Admin registration not allowed")
	}

	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	in.ContactNumber = strings.TrimSpace(in.ContactNumber)

	fields, err := u.validator.Struct(in)
	if err != nil {
		u.log.Error("register validation failed", zap.Error(err))
		return AuthOutput{}, errInternal()
	}

	// 形式がOKなら重複も一緒に返す
	if _, bad := fields["email"]; !bad {
		_, err := u.users.FindByEmail(ctx, in.Email)
		switch {
		case err == nil:
			if fields == nil {
				fields = map[string]string{}
			}
			fields["email"] = "The email has already been taken."
		case !errors.Is(err, repo.ErrNotFound):
			u.log.Error("find user by email failed", zap.Error(err))
			return AuthOutput{}, errInternal()
		}
	}
	if len(fields) > 0 {
		return AuthOutput{}, NewValidationError(fields)
	}

	hash, err := u.hasher.Hash(in.Password)
	if err != nil {
		u.log.Error("hash password failed", zap.Error(err))
		return AuthOutput{}, errInternal()
	}

	user := &model.User{
		Name:          in.Name,
		Email:         in.Email,
		PasswordHash:  hash,
		ContactNumber: in.ContactNumber,
		Role:          model.RoleUser,
		TokenVersion:  0,
	}
	if err := u.users.Create(ctx, user); err != nil {
		//同時登録
		if errors.Is(err, repo.ErrDuplicate) {
			return AuthOutput{}, newFieldError("email", "The email has already been taken.")
		}
		u.log.Error("create user failed", zap.Error(err))
		return AuthOutput{}, errInternal()
	}

	token, err := u.tokens.Issue(*user)
	if err != nil {
		u.log.Error("issue token failed", zap.Error(err), zap.Int64("user_id", user.ID))
		return AuthOutput{}, errInternal()
	}

	u.log.Info("user registered", zap.Int64("user_id", user.ID))
	return AuthOutput{User: *user, Token: token}, nil
}

// Login はemail/passwordを照合してトークンを返す。
// AdminLoginなのにadminでなければ403。
func (u *AuthUsecase) Login(ctx context.Context, in LoginInput) (AuthOutput, error) {
	in.Email = normalizeEmail(in.Email)

	fields, err := u.validator.Struct(in)
	if err != nil {
		u.log.Error("login validation failed", zap.Error(err))
		return AuthOutput{}, errInternal()
	}
	if len(fields) > 0 {
		return AuthOutput{}, NewValidationError(fields)
	}

	user, err := u.users.FindByEmail(ctx, in.Email)
	if err != nil {
		// 存在しないメールかどうかは返さない
		if errors.Is(err, repo.ErrNotFound) {
			return AuthOutput{}, NewHTTPError(http.StatusUnauthorized, "Invalid login credentials")
		}
		u.log.Error("find user by email failed", zap.Error(err))
		return AuthOutput{}, errInternal()
	}

	if !u.hasher.Verify(in.Password, user.PasswordHash) {
		return AuthOutput{}, NewHTTPError(http.StatusUnauthorized, "Invalid login credentials")
	}

	if in.AdminLogin && !user.Role.IsAdmin() {
		return AuthOutput{}, NewHTTPError(http.StatusForbidden, "Access denied. Admin credentials required.")
	}

	token, err := u.tokens.Issue(*user)
	if err != nil {
		u.log.Error("issue token failed", zap.Error(err), zap.Int64("user_id", user.ID))
		return AuthOutput{}, errInternal()
	}

	return AuthOutput{User: *user, Token: token}, nil
}

// Logout はtoken_versionを上げて発行済みトークンを全部無効にする
func (u *AuthUsecase) Logout(ctx context.Context, userID int64) (MessageOutput, error) {
	if userID <= 0 {
		return MessageOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	if err := u.users.IncrementTokenVersion(ctx, userID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return MessageOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
		}
		u.log.Error("increment token version failed", zap.Error(err), zap.Int64("user_id", userID))
		return MessageOutput{}, errInternal()
	}

	return MessageOutput{Message: "Successfully logged out"}, nil
}

// ForceLogout は管理者が対象ユーザーのトークンを全部失効させる
func (u *AuthUsecase) ForceLogout(ctx context.Context, targetUserID int64) (MessageOutput, error) {
	if targetUserID <= 0 {
		return MessageOutput{}, NewHTTPError(http.StatusBadRequest, "invalid user_id")
	}

	if err := u.users.IncrementTokenVersion(ctx, targetUserID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return MessageOutput{}, NewHTTPError(http.StatusNotFound, "User not found")
		}
		u.log.Error("force logout failed", zap.Error(err), zap.Int64("user_id", targetUserID))
		return MessageOutput{}, errInternal()
	}

	u.log.Info("user force logged out", zap.Int64("user_id", targetUserID))
	return MessageOutput{Message: "User tokens revoked"}, nil
}

func (u *AuthUsecase) Me(ctx context.Context, userID int64) (model.User, error) {
	if userID <= 0 {
		return model.User{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	user, err := u.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return model.User{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
		}
		u.log.Error("find user failed", zap.Error(err), zap.Int64("user_id", userID))
		return model.User{}, errInternal()
	}
	return *user, nil
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
