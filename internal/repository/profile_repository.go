package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/iliyamo/identity-service/internal/apperr"
	"github.com/iliyamo/identity-service/internal/model"
)

const profileColumns = "id,user_id,first_name,last_name,phone,address,position,birth_date,avatar," +
	"emergency_contact,is_active,created_at,updated_at"

// ProfileRepo persists the 'profiles' table.  Address and emergency contact
// are stored as JSON documents.
type ProfileRepo struct{ db DBTX }

func NewProfileRepo(db DBTX) *ProfileRepo { return &ProfileRepo{db: db} }

func scanProfile(row rowScanner) (*model.Profile, error) {
	var (
		p                model.Profile
		id, userID       string
		address          []byte
		emergency        []byte
		position, avatar sql.NullString
	)
	err := row.Scan(&id, &userID, &p.FirstName, &p.LastName, &p.Phone, &address, &position, &p.BirthDate,
		&avatar, &emergency, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.ID = model.IDFrom(model.TableProfile, id)
	p.UserID = model.IDFrom(model.TableUser, userID)
	p.Position = stringPtr(position)
	p.Avatar = stringPtr(avatar)
	if len(address) > 0 {
		if err := json.Unmarshal(address, &p.Address); err != nil {
			return nil, err
		}
	}
	if len(emergency) > 0 && string(emergency) != "null" {
		var ec model.EmergencyContact
		if err := json.Unmarshal(emergency, &ec); err != nil {
			return nil, err
		}
		p.EmergencyContact = &ec
	}
	return &p, nil
}

func encodeProfileDocs(p *model.Profile) (address []byte, emergency any, err error) {
	if address, err = json.Marshal(p.Address); err != nil {
		return nil, nil, err
	}
	if p.EmergencyContact == nil {
		return address, nil, nil
	}
	b, err := json.Marshal(p.EmergencyContact)
	if err != nil {
		return nil, nil, err
	}
	return address, b, nil
}

func (r *ProfileRepo) Create(ctx context.Context, p *model.Profile) error {
	address, emergency, err := encodeProfileDocs(p)
	if err != nil {
		return apperr.Wrap(apperr.ErrInternal, err)
	}
	_, err = r.db.ExecContext(ctx,
		"INSERT INTO profiles ("+profileColumns+") VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)",
		p.ID.Key, p.UserID.Key, p.FirstName, p.LastName, p.Phone, address, nullString(p.Position),
		p.BirthDate.UTC(), nullString(p.Avatar), emergency, p.IsActive, p.CreatedAt.UTC(), p.UpdatedAt.UTC())
	return classify(err, nil, apperr.ErrProfileAlreadyExists)
}

func (r *ProfileRepo) Update(ctx context.Context, p *model.Profile) error {
	address, emergency, err := encodeProfileDocs(p)
	if err != nil {
		return apperr.Wrap(apperr.ErrInternal, err)
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET first_name=?, last_name=?, phone=?, address=?, position=?, birth_date=?,
		        avatar=?, emergency_contact=?, updated_at=?
		  WHERE id=? AND is_active=1`,
		p.FirstName, p.LastName, p.Phone, address, nullString(p.Position), p.BirthDate.UTC(),
		nullString(p.Avatar), emergency, p.UpdatedAt.UTC(), p.ID.Key)
	if err != nil {
		return apperr.Database(err)
	}
	return expectRows(res, apperr.ErrProfileNotFound)
}

// Delete soft-deletes the profile.
func (r *ProfileRepo) Delete(ctx context.Context, id model.ID) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE profiles SET is_active=0, updated_at=? WHERE id=? AND is_active=1", time.Now().UTC(), id.Key)
	if err != nil {
		return apperr.Database(err)
	}
	return expectRows(res, apperr.ErrProfileNotFound)
}

func (r *ProfileRepo) FindByID(ctx context.Context, id model.ID) (*model.Profile, error) {
	p, err := scanProfile(r.db.QueryRowContext(ctx,
		"SELECT "+profileColumns+" FROM profiles WHERE id=? AND is_active=1 LIMIT 1", id.Key))
	if err != nil {
		return nil, classify(err, apperr.ErrProfileNotFound, nil)
	}
	return p, nil
}

// FindByUserID returns the user's active profile.
func (r *ProfileRepo) FindByUserID(ctx context.Context, userID model.ID) (*model.Profile, error) {
	p, err := scanProfile(r.db.QueryRowContext(ctx,
		"SELECT "+profileColumns+" FROM profiles WHERE user_id=? AND is_active=1 ORDER BY created_at DESC LIMIT 1",
		userID.Key))
	if err != nil {
		return nil, classify(err, apperr.ErrProfileNotFound, nil)
	}
	return p, nil
}
