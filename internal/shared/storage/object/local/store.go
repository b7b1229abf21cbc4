package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	jwtlib "github.com/golang-jwt/jwt/v5"

	"securelink-backend/internal/shared/storage/object"
)

// FilesRoute is where signed download URLs of the local store are served.
const FilesRoute = "/files"

// urlAudience is the aud claim of download tokens.
const urlAudience = "securelink-files"

// Store implements ObjectStore using the local filesystem.
type Store struct {
	baseDir   string
	publicURL string
	secret    []byte
	urlTTL    time.Duration
	now       func() time.Time
}

// New creates a local object store rooted at baseDir. Download URLs point at
// publicURL + FilesRoute and expire after urlTTL.
func New(baseDir, publicURL, secret string, urlTTL time.Duration) *Store {
	if urlTTL <= 0 {
		urlTTL = time.Hour
	}
	if secret == "" {
		secret = "dev-secret"
	}
	return &Store{
		baseDir:   baseDir,
		publicURL: strings.TrimRight(publicURL, "/"),
		secret:    []byte(secret),
		urlTTL:    urlTTL,
		now:       time.Now,
	}
}

// Exists reports whether a file is stored under key.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	full, err := s.resolve(key)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(full)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat: %w", err)
	}
	return !info.IsDir(), nil
}

// Put writes the body to disk. IfAbsent uses O_EXCL so the create is atomic.
func (s *Store) Put(ctx context.Context, in object.PutInput) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	full, err := s.resolve(in.Key)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return 0, fmt.Errorf("mkdir: %w", err)
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if in.IfAbsent {
		flags = os.O_CREATE | os.O_WRONLY | os.O_EXCL
	}
	f, err := os.OpenFile(full, flags, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return 0, object.ErrAlreadyExists
		}
		return 0, fmt.Errorf("open file: %w", err)
	}

	body := object.NewProgressReader(in.Body, in.Size, in.Progress)
	written, err := io.Copy(f, body)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(full)
		return 0, fmt.Errorf("write body: %w", err)
	}
	return written, nil
}

// URL returns a signed, expiring URL served by Handler.
func (s *Store) URL(ctx context.Context, key string) (string, error) {
	ok, err := s.Exists(ctx, key)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", object.ErrNotFound
	}

	now := s.now().UTC()
	token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.RegisteredClaims{
		Subject:   key,
		Audience:  jwtlib.ClaimStrings{urlAudience},
		IssuedAt:  jwtlib.NewNumericDate(now),
		ExpiresAt: jwtlib.NewNumericDate(now.Add(s.urlTTL)),
	}).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign url: %w", err)
	}

	escaped := make([]string, 0, 4)
	for _, seg := range strings.Split(key, "/") {
		escaped = append(escaped, url.PathEscape(seg))
	}
	return s.publicURL + FilesRoute + "/" + strings.Join(escaped, "/") + "?token=" + url.QueryEscape(token), nil
}

// Delete removes the file under key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return object.ErrNotFound
		}
		return fmt.Errorf("remove: %w", err)
	}
	return nil
}

// Handler serves files behind URLs produced by URL. Mount it at FilesRoute+"/*key".
func (s *Store) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := strings.TrimPrefix(c.Param("key"), "/")
		var claims jwtlib.RegisteredClaims
		_, err := jwtlib.ParseWithClaims(c.Query("token"), &claims, func(t *jwtlib.Token) (any, error) {
			return s.secret, nil
		},
			jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
			jwtlib.WithTimeFunc(s.now),
			jwtlib.WithExpirationRequired(),
			jwtlib.WithAudience(urlAudience),
		)
		if err != nil || claims.Subject != key {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}

		full, err := s.resolve(key)
		if err != nil {
			c.AbortWithStatus(http.StatusBadRequest)
			return
		}
		if _, err := os.Stat(full); err != nil {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}
		c.FileAttachment(full, path.Base(key))
	}
}

func (s *Store) resolve(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if key == "" || clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid storage key")
	}
	return filepath.Join(s.baseDir, clean), nil
}

var _ object.ObjectStore = (*Store)(nil)
