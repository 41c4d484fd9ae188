package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/iliyamo/identity-service/internal/apperr"
	"github.com/iliyamo/identity-service/internal/model"
)

// phonePattern accepts an optional leading + and 7 to 15 digits, with
// spaces, dots, dashes and parentheses as separators.
var phonePattern = regexp.MustCompile(`^\+?[0-9 ().-]{7,20}$`)

func validPhone(phone string) bool {
	if !phonePattern.MatchString(phone) {
		return false
	}
	digits := 0
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits >= 7 && digits <= 15
}

type CreateProfileInput struct {
	FirstName        string
	LastName         string
	Phone            string
	Address          model.Address
	Position         *string
	BirthDate        time.Time
	Avatar           *string
	EmergencyContact *model.EmergencyContact
}

// UpdateProfileInput carries a partial update: nil fields keep their value.
type UpdateProfileInput struct {
	FirstName        *string
	LastName         *string
	Phone            *string
	Address          *model.Address
	Position         *string
	BirthDate        *time.Time
	Avatar           *string
	EmergencyContact *model.EmergencyContact
}

// ProfileService manages the personal details attached to accounts.
type ProfileService struct {
	auth     *Authorizer
	profiles ProfileStore
	now      func() time.Time
}

func NewProfileService(auth *Authorizer, profiles ProfileStore) *ProfileService {
	return &ProfileService{auth: auth, profiles: profiles, now: func() time.Time { return time.Now().UTC() }}
}

// Create attaches a profile to the caller.  A user has at most one active
// profile.
func (s *ProfileService) Create(ctx context.Context, token string, in CreateProfileInput) (*model.Profile, error) {
	actor, err := s.auth.Authorize(ctx, token, AnyUser)
	if err != nil {
		return nil, err
	}
	first, last := strings.TrimSpace(in.FirstName), strings.TrimSpace(in.LastName)
	if first == "" || last == "" {
		return nil, apperr.Validation("first_name and last_name are required")
	}
	phone := strings.TrimSpace(in.Phone)
	if !validPhone(phone) {
		return nil, apperr.ErrInvalidPhone
	}
	if in.EmergencyContact != nil && in.EmergencyContact.Phone != "" && !validPhone(in.EmergencyContact.Phone) {
		return nil, apperr.ErrInvalidPhone
	}
	if in.BirthDate.IsZero() {
		return nil, apperr.Validation("birth_date is required")
	}

	if _, err := s.profiles.FindByUserID(ctx, actor.ID); err == nil {
		return nil, apperr.ErrProfileAlreadyExists
	} else if !errors.Is(err, apperr.ErrProfileNotFound) {
		return nil, err
	}

	now := s.now()
	p := &model.Profile{
		ID:               model.NewID(model.TableProfile),
		UserID:           actor.ID,
		FirstName:        first,
		LastName:         last,
		Phone:            phone,
		Address:          in.Address,
		Position:         in.Position,
		BirthDate:        in.BirthDate.UTC(),
		Avatar:           in.Avatar,
		EmergencyContact: in.EmergencyContact,
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.profiles.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Mine returns the caller's profile.
func (s *ProfileService) Mine(ctx context.Context, token string) (*model.Profile, error) {
	actor, err := s.auth.Authorize(ctx, token, AnyUser)
	if err != nil {
		return nil, err
	}
	return s.profiles.FindByUserID(ctx, actor.ID)
}

func (s *ProfileService) Get(ctx context.Context, token, id string) (*model.Profile, error) {
	if _, err := s.auth.Authorize(ctx, token, AnyUser); err != nil {
		return nil, err
	}
	pid, err := parseProfileID(id)
	if err != nil {
		return nil, err
	}
	return s.profiles.FindByID(ctx, pid)
}

func (s *ProfileService) Update(ctx context.Context, token, id string, in UpdateProfileInput) (*model.Profile, error) {
	p, err := s.owned(ctx, token, id)
	if err != nil {
		return nil, err
	}
	if in.FirstName != nil {
		if p.FirstName = strings.TrimSpace(*in.FirstName); p.FirstName == "" {
			return nil, apperr.Validation("first_name must not be empty")
		}
	}
	if in.LastName != nil {
		if p.LastName = strings.TrimSpace(*in.LastName); p.LastName == "" {
			return nil, apperr.Validation("last_name must not be empty")
		}
	}
	if in.Phone != nil {
		phone := strings.TrimSpace(*in.Phone)
		if !validPhone(phone) {
			return nil, apperr.ErrInvalidPhone
		}
		p.Phone = phone
	}
	if in.Address != nil {
		p.Address = *in.Address
	}
	if in.Position != nil {
		p.Position = in.Position
	}
	if in.BirthDate != nil {
		p.BirthDate = in.BirthDate.UTC()
	}
	if in.Avatar != nil {
		p.Avatar = in.Avatar
	}
	if in.EmergencyContact != nil {
		if in.EmergencyContact.Phone != "" && !validPhone(in.EmergencyContact.Phone) {
			return nil, apperr.ErrInvalidPhone
		}
		p.EmergencyContact = in.EmergencyContact
	}
	p.UpdatedAt = s.now()
	if err := s.profiles.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Delete deactivates a profile.
func (s *ProfileService) Delete(ctx context.Context, token, id string) error {
	p, err := s.owned(ctx, token, id)
	if err != nil {
		return err
	}
	return s.profiles.Delete(ctx, p.ID)
}

// owned loads profile id for a caller that owns it or is an admin.
func (s *ProfileService) owned(ctx context.Context, token, id string) (*model.Profile, error) {
	actor, err := s.auth.Authorize(ctx, token, AnyUser)
	if err != nil {
		return nil, err
	}
	pid, err := parseProfileID(id)
	if err != nil {
		return nil, err
	}
	p, err := s.profiles.FindByID(ctx, pid)
	if err != nil {
		return nil, err
	}
	if !p.UserID.Equal(actor.ID) && !actor.Type.IsAdmin() {
		return nil, apperr.ErrUnauthorizedAccess
	}
	return p, nil
}

func parseProfileID(s string) (model.ID, error) {
	id, err := model.ParseID(model.TableProfile, s)
	if err != nil {
		return model.ID{}, apperr.InvalidInput("malformed profile id")
	}
	return id, nil
}
