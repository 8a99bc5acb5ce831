package repository

import (
	"context"

	"focustrack-backend/internal/apperrors"
	"focustrack-backend/internal/models"
	"focustrack-backend/internal/storage"
)

// UserRepo persists the identity blob under the userInfo key. Absence is not
// an error; sync status treats it as "not authenticated".
type UserRepo struct {
	store storage.Backend
}

func NewUserRepo(store storage.Backend) *UserRepo {
	return &UserRepo{store: store}
}

func (r *UserRepo) GetUserInfo(ctx context.Context) (*models.UserInfo, error) {
	var info models.UserInfo
	err := storage.GetJSON(ctx, r.store, storage.KeyUserInfo, &info)
	if err == storage.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, &apperrors.StorageError{Message: "failed to load user info", Err: err}
	}
	return &info, nil
}

func (r *UserRepo) SetUserInfo(ctx context.Context, info *models.UserInfo) error {
	if err := storage.SetJSON(ctx, r.store, storage.KeyUserInfo, info); err != nil {
		return &apperrors.StorageError{Message: "failed to save user info", Err: err}
	}
	return nil
}
