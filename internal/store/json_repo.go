package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sitex/tgtemplates/internal/domain"
)

var (
	ErrNotFound  = errors.New("template not found")
	ErrEmptyName = errors.New("template name is empty")
)

const fileName = "templates.json"

// JSONTemplateRepo persists the owner's template list as a single JSON file
// under the base dir. Every mutation rewrites the whole file through a temp
// file and rename, so a second reader never observes a partial write.
type JSONTemplateRepo struct {
	path string

	mu        sync.Mutex
	onMutated func(templates []domain.Template)
}

func NewJSONTemplateRepo(baseDir string) (*JSONTemplateRepo, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir base dir: %w", err)
	}
	return &JSONTemplateRepo{path: filepath.Join(baseDir, fileName)}, nil
}

// OnMutated registers the hook called with the fresh ordered list after every
// successful mutation. At most one hook; the composition root wires it to the
// mirror publisher.
func (r *JSONTemplateRepo) OnMutated(fn func(templates []domain.Template)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onMutated = fn
}

func (r *JSONTemplateRepo) List(ctx context.Context) ([]domain.Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load()
}

func (r *JSONTemplateRepo) Get(ctx context.Context, id uuid.UUID) (domain.Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	templates, err := r.load()
	if err != nil {
		return domain.Template{}, err
	}
	for _, t := range templates {
		if t.ID == id {
			return t, nil
		}
	}
	return domain.Template{}, ErrNotFound
}

func (r *JSONTemplateRepo) Upsert(ctx context.Context, t domain.Template) (domain.Template, error) {
	if t.Name == "" {
		return domain.Template{}, ErrEmptyName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	templates, err := r.load()
	if err != nil {
		return domain.Template{}, err
	}

	now := time.Now().UTC()
	if t.Icon == "" {
		t.Icon = domain.DefaultIcon
	}

	if t.ID == uuid.Nil {
		t.ID = uuid.New()
		t.CreatedAt = now
		t.SortOrder = nextSortOrder(templates)
		templates = append(templates, t)
	} else {
		found := false
		for i := range templates {
			if templates[i].ID == t.ID {
				t.CreatedAt = templates[i].CreatedAt
				t.SortOrder = templates[i].SortOrder
				templates[i] = t
				found = true
				break
			}
		}
		if !found {
			if t.CreatedAt.IsZero() {
				t.CreatedAt = now
			}
			t.SortOrder = nextSortOrder(templates)
			templates = append(templates, t)
		}
	}
	t.UpdatedAt = now
	setUpdated(templates, t.ID, now)

	if err := r.save(templates); err != nil {
		return domain.Template{}, err
	}
	r.notify(templates)
	return t, nil
}

func (r *JSONTemplateRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	templates, err := r.load()
	if err != nil {
		return err
	}

	kept := templates[:0]
	for _, t := range templates {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	if len(kept) == len(templates) {
		return ErrNotFound
	}

	if err := r.save(kept); err != nil {
		return err
	}
	r.notify(kept)
	return nil
}

// Duplicate copies every field except id and timestamps, derives the name
// from the source and places the copy directly after it.
func (r *JSONTemplateRepo) Duplicate(ctx context.Context, id uuid.UUID) (domain.Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	templates, err := r.load()
	if err != nil {
		return domain.Template{}, err
	}

	var src *domain.Template
	for i := range templates {
		if templates[i].ID == id {
			src = &templates[i]
			break
		}
	}
	if src == nil {
		return domain.Template{}, ErrNotFound
	}

	now := time.Now().UTC()
	dup := *src
	dup.ID = uuid.New()
	dup.Name = src.Name + " copy"
	dup.CreatedAt = now
	dup.UpdatedAt = now
	dup.SortOrder = src.SortOrder + 1

	for i := range templates {
		if templates[i].SortOrder > src.SortOrder {
			templates[i].SortOrder++
		}
	}
	templates = append(templates, dup)

	if err := r.save(templates); err != nil {
		return domain.Template{}, err
	}
	r.notify(templates)
	return dup, nil
}

func (r *JSONTemplateRepo) load() ([]domain.Template, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", r.path, err)
	}

	var templates []domain.Template
	if err := json.Unmarshal(data, &templates); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", r.path, err)
	}
	sortTemplates(templates)
	return templates, nil
}

func (r *JSONTemplateRepo) save(templates []domain.Template) error {
	sortTemplates(templates)

	data, err := json.MarshalIndent(templates, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal templates: %w", err)
	}

	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

func (r *JSONTemplateRepo) notify(templates []domain.Template) {
	if r.onMutated == nil {
		return
	}
	out := make([]domain.Template, len(templates))
	copy(out, templates)
	r.onMutated(out)
}

func sortTemplates(templates []domain.Template) {
	sort.SliceStable(templates, func(i, j int) bool {
		if templates[i].SortOrder != templates[j].SortOrder {
			return templates[i].SortOrder < templates[j].SortOrder
		}
		return templates[i].CreatedAt.Before(templates[j].CreatedAt)
	})
}

func nextSortOrder(templates []domain.Template) int {
	next := 0
	for _, t := range templates {
		if t.SortOrder >= next {
			next = t.SortOrder + 1
		}
	}
	return next
}

func setUpdated(templates []domain.Template, id uuid.UUID, at time.Time) {
	for i := range templates {
		if templates[i].ID == id {
			templates[i].UpdatedAt = at
		}
	}
}
