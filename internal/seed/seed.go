// Package seed loads initial users and spaces from a YAML file.
package seed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/iliyamo/space-reservation/internal/model"
	"github.com/iliyamo/space-reservation/internal/repository"
)

// File is the top-level layout of a seed file.
type File struct {
	Users  []User  `yaml:"users"`
	Spaces []Space `yaml:"spaces"`
}

// User is a seeded account.  MaxSimultaneousReservations of 0 or unset
// means unlimited.
type User struct {
	Name                        string     `yaml:"name"`
	Email                       string     `yaml:"email"`
	Password                    string     `yaml:"password"`
	Role                        model.Role `yaml:"role"`
	MaxSimultaneousReservations uint32     `yaml:"max_simultaneous_reservations"`
}

// Space is a seeded bookable space.
type Space struct {
	Name         string             `yaml:"name"`
	Type         model.SpaceKind    `yaml:"type"`
	Description  string             `yaml:"description"`
	Capacity     uint32             `yaml:"capacity"`
	Location     string             `yaml:"location"`
	Availability model.Availability `yaml:"availability"`
}

func (s Space) model() model.Space {
	return model.Space{
		Name:         strings.TrimSpace(s.Name),
		Kind:         s.Type,
		Description:  s.Description,
		Capacity:     s.Capacity,
		Location:     s.Location,
		Availability: s.Availability,
	}
}

// LoadFile reads and validates the seed file at path.
func LoadFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read seed file: %w", err)
	}
	return Load(bytes.NewReader(data))
}

// Load decodes a seed document.  Unknown keys are rejected, and every
// space must pass model.Space.Validate before anything is written.
func Load(r io.Reader) (File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return File{}, fmt.Errorf("parse seed file: %w", err)
	}
	if err := f.Validate(); err != nil {
		return File{}, err
	}
	return f, nil
}

// Validate checks users and spaces.
func (f File) Validate() error {
	var errs []error
	for i, u := range f.Users {
		if strings.TrimSpace(u.Email) == "" {
			errs = append(errs, fmt.Errorf("users[%d]: email is required", i))
		}
		if u.Role != "" && u.Role != model.RoleUser && u.Role != model.RoleAdmin {
			errs = append(errs, fmt.Errorf("users[%d]: unknown role %q", i, u.Role))
		}
		if len(u.Password) < 8 {
			errs = append(errs, fmt.Errorf("users[%d]: password must be at least 8 characters", i))
		}
	}
	for i, s := range f.Spaces {
		fields := s.model().Validate()
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			errs = append(errs, fmt.Errorf("spaces[%d] %q: %s", i, s.Name, fields[k]))
		}
	}
	return errors.Join(errs...)
}

// Result counts what Apply created and skipped.
type Result struct {
	UsersCreated, UsersSkipped   int
	SpacesCreated, SpacesSkipped int
}

// Apply writes f.  Users whose email exists and spaces whose name exists
// are skipped, so a seed can be applied on every start.
func Apply(ctx context.Context, users *repository.UserRepo, spaces *repository.SpaceRepo, f File, cost int, logger *slog.Logger) (Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var res Result

	for _, u := range f.Users {
		var quota *uint32
		if u.MaxSimultaneousReservations > 0 {
			q := u.MaxSimultaneousReservations
			quota = &q
		}
		_, err := users.Create(ctx, repository.NewUser{
			Name: u.Name, Email: u.Email, Password: u.Password, Role: u.Role, Quota: quota,
		}, cost)
		switch {
		case errors.Is(err, repository.ErrEmailExists):
			res.UsersSkipped++
		case err != nil:
			return res, fmt.Errorf("seed user %s: %w", u.Email, err)
		default:
			res.UsersCreated++
		}
	}

	existing, err := spaces.List(ctx, repository.SpaceFilter{})
	if err != nil {
		return res, fmt.Errorf("list spaces: %w", err)
	}
	names := make(map[string]bool, len(existing))
	for _, s := range existing {
		names[s.Name] = true
	}
	for _, s := range f.Spaces {
		m := s.model()
		if names[m.Name] {
			res.SpacesSkipped++
			continue
		}
		if err := spaces.Create(ctx, &m); err != nil {
			return res, fmt.Errorf("seed space %s: %w", m.Name, err)
		}
		names[m.Name] = true
		res.SpacesCreated++
	}

	logger.InfoContext(ctx, "seed applied",
		slog.Int("users_created", res.UsersCreated), slog.Int("users_skipped", res.UsersSkipped),
		slog.Int("spaces_created", res.SpacesCreated), slog.Int("spaces_skipped", res.SpacesSkipped))
	return res, nil
}
