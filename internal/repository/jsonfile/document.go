package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"user-api/internal/domain"
	"user-api/internal/storage"
)

const mirrorTimeout = 30 * time.Second

// document is the on-disk layout: a single object with a users array.
type document struct {
	Users []record `json:"users"`
}

type record struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	Mobile      string `json:"mobile"`
	Description string `json:"description"`
	CreatedAt   string `json:"createdAt,omitempty"`
	UpdatedAt   string `json:"updatedAt,omitempty"`
}

func toRecord(u domain.User) record {
	return record{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		Password:    u.Password,
		Mobile:      u.Mobile,
		Description: u.Description,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func fromRecord(r record) domain.User {
	return domain.User{
		ID:          r.ID,
		Name:        r.Name,
		Email:       r.Email,
		Password:    r.Password,
		Mobile:      r.Mobile,
		Description: r.Description,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func decodeDocument(data []byte) ([]domain.User, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	users := make([]domain.User, 0, len(doc.Users))
	ids := make(map[string]struct{}, len(doc.Users))
	names := make(map[string]struct{}, len(doc.Users))
	for _, rec := range doc.Users {
		if rec.ID == "" {
			return nil, fmt.Errorf("user %q has an empty id", rec.Name)
		}
		if _, dup := ids[rec.ID]; dup {
			return nil, fmt.Errorf("duplicate user id %s", rec.ID)
		}
		if _, dup := names[rec.Name]; dup {
			return nil, fmt.Errorf("duplicate user name %q", rec.Name)
		}
		ids[rec.ID] = struct{}{}
		names[rec.Name] = struct{}{}

		users = append(users, fromRecord(rec))
	}
	return users, nil
}

func encodeDocument(users []domain.User) ([]byte, error) {
	doc := document{Users: make([]record, len(users))}
	for i := range users {
		doc.Users[i] = toRecord(users[i])
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return append(data, '\n'), nil
}

// load reads the document from disk. A missing file is restored from the
// mirror when one is configured, otherwise an empty document is written.
func (r *UserRepository) load(ctx context.Context) ([]domain.User, error) {
	data, err := os.ReadFile(r.cfg.Path)
	if err == nil {
		return decodeDocument(data)
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read document: %w", err)
	}

	if r.cfg.Mirror != nil {
		data, err := r.cfg.Mirror.Fetch(ctx, r.cfg.MirrorKey)
		switch {
		case err == nil:
			users, err := decodeDocument(data)
			if err != nil {
				return nil, fmt.Errorf("mirrored document: %w", err)
			}
			if err := r.writeFile(data); err != nil {
				return nil, err
			}
			r.cfg.Logger.Infof("restored %s from mirror key %s", r.cfg.Path, r.cfg.MirrorKey)
			return users, nil
		case errors.Is(err, storage.ErrObjectNotFound):
		default:
			return nil, fmt.Errorf("fetch mirrored document: %w", err)
		}
	}

	r.cfg.Logger.Infof("creating empty document at %s", r.cfg.Path)
	users := []domain.User{}
	data, err = encodeDocument(users)
	if err != nil {
		return nil, err
	}
	if err := r.writeFile(data); err != nil {
		return nil, err
	}
	return users, nil
}

// save rewrites the whole document and then pushes it to the mirror.
// Mirror failures are logged only.
func (r *UserRepository) save(ctx context.Context, users []domain.User) error {
	data, err := encodeDocument(users)
	if err != nil {
		return err
	}
	if err := r.writeFile(data); err != nil {
		return err
	}

	if r.cfg.Mirror != nil {
		pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), mirrorTimeout)
		defer cancel()
		if err := r.cfg.Mirror.Push(pushCtx, r.cfg.MirrorKey, data); err != nil {
			r.cfg.Logger.Warnf("mirror document: %v", err)
		}
	}
	return nil
}

// writeFile replaces the document via a temp file and rename so readers
// never see a partially written file.
func (r *UserRepository) writeFile(data []byte) error {
	dir := filepath.Dir(r.cfg.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create document dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(r.cfg.Path)+"-*")
	if err != nil {
		return fmt.Errorf("create temp document: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp document: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp document: %w", err)
	}
	if err := os.Rename(tmpName, r.cfg.Path); err != nil {
		return fmt.Errorf("replace document: %w", err)
	}
	return nil
}
