package service

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"storefront/internal/client"
	"storefront/internal/model"
)

// Upload is one file taken from a multipart form.
type Upload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

func (u Upload) ext() string {
	ext := strings.ToLower(path.Ext(u.Filename))
	if ext == "" || len(ext) > 8 {
		return ".bin"
	}
	return ext
}

// ProfileUpdater persists a profile patch for the signed-in user.
type ProfileUpdater interface {
	UpdateProfile(ctx context.Context, patch model.ProfilePatch) error
}

type MediaService interface {
	// ReplaceAvatar removes the current avatar when it is one of ours,
	// uploads the new one and stores its public URL on the profile.
	ReplaceAvatar(ctx context.Context, profiles ProfileUpdater, user *model.UserProfile, file Upload) (string, error)
	RemoveAvatar(ctx context.Context, profiles ProfileUpdater, user *model.UserProfile) error
	// UploadProductImages uploads the main image, then each gallery image in
	// order, then updates the product record. Returns nil, nil when the
	// product does not exist.
	UploadProductImages(ctx context.Context, productID int64, main *Upload, gallery []Upload) (*model.Product, error)
}

type mediaServiceImpl struct {
	storage  client.ObjectStorage
	products ProductService
	log      logrus.FieldLogger
	now      func() time.Time
}

func NewMediaService(
	storage client.ObjectStorage,
	products ProductService,
	log logrus.FieldLogger,
) MediaService {
	return &mediaServiceImpl{
		storage:  storage,
		products: products,
		log:      log,
		now:      time.Now,
	}
}

// removeHosted deletes the object behind publicURL if it lives in our
// bucket. Failures are logged only.
func (s *mediaServiceImpl) removeHosted(ctx context.Context, publicURL string) {
	if publicURL == "" {
		return
	}
	objectPath, ok := s.storage.ObjectPath(publicURL)
	if !ok {
		return
	}
	if err := s.storage.Remove(ctx, objectPath); err != nil {
		s.log.WithError(err).WithField("path", objectPath).Warn("remove stored file")
	}
}

func (s *mediaServiceImpl) ReplaceAvatar(ctx context.Context, profiles ProfileUpdater, user *model.UserProfile, file Upload) (string, error) {
	if user == nil {
		return "", model.ErrNotAuthenticated
	}

	s.removeHosted(ctx, user.AvatarURL)

	objectPath := fmt.Sprintf("avatars/%s-%d%s", user.ID, s.now().UnixMilli(), file.ext())
	if err := s.storage.Upload(ctx, objectPath, file.ContentType, file.Body); err != nil {
		return "", fmt.Errorf("upload avatar: %w", err)
	}

	avatarURL := s.storage.PublicURL(objectPath)
	if err := profiles.UpdateProfile(ctx, model.ProfilePatch{AvatarURL: &avatarURL}); err != nil {
		return "", fmt.Errorf("save avatar: %w", err)
	}
	return avatarURL, nil
}

func (s *mediaServiceImpl) RemoveAvatar(ctx context.Context, profiles ProfileUpdater, user *model.UserProfile) error {
	if user == nil {
		return model.ErrNotAuthenticated
	}

	s.removeHosted(ctx, user.AvatarURL)

	empty := ""
	if err := profiles.UpdateProfile(ctx, model.ProfilePatch{AvatarURL: &empty}); err != nil {
		return fmt.Errorf("clear avatar: %w", err)
	}
	return nil
}

func (s *mediaServiceImpl) UploadProductImages(ctx context.Context, productID int64, main *Upload, gallery []Upload) (*model.Product, error) {
	product, err := s.products.GetFullProduct(ctx, productID)
	if err != nil || product == nil {
		return nil, err
	}

	stamp := s.now().UnixMilli()
	var patch model.ProductPatch

	if main != nil {
		objectPath := fmt.Sprintf("products/%d/main-%d%s", productID, stamp, main.ext())
		if err := s.storage.Upload(ctx, objectPath, main.ContentType, main.Body); err != nil {
			return nil, fmt.Errorf("upload main image: %w", err)
		}
		srcURL := s.storage.PublicURL(objectPath)
		patch.SrcURL = &srcURL
	}

	if len(gallery) > 0 {
		urls := make([]string, 0, len(gallery))
		for i, file := range gallery {
			objectPath := fmt.Sprintf("products/%d/gallery-%d-%d%s", productID, stamp, i, file.ext())
			if err := s.storage.Upload(ctx, objectPath, file.ContentType, file.Body); err != nil {
				return nil, fmt.Errorf("upload gallery image %d: %w", i, err)
			}
			urls = append(urls, s.storage.PublicURL(objectPath))
		}
		patch.Gallery = &urls
	}

	if patch.Empty() {
		return product, nil
	}
	return s.products.UpdateProduct(ctx, productID, patch)
}
