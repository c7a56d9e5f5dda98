package services

import (
	"context"
	"path"
	"strings"

	"hospverse/internal/domain"
	"hospverse/internal/listing"
	"hospverse/internal/repos"
	"hospverse/internal/validate"

	"github.com/google/uuid"
)

// PhotoService keeps before/after photo metadata. File bytes are not stored.
type PhotoService struct {
	Photos *repos.PhotoRepo
	Clock  Clock
}

type SessionInput struct {
	PatientName string `form:"patient_name" json:"patientName" validate:"required,max=80"`
	Treatment   string `form:"treatment" json:"treatment" validate:"required,max=80"`
	SessionDate string `form:"session_date" json:"sessionDate" validate:"omitempty,isodate"`
}

type PhotoInput struct {
	SessionID string `form:"session_id" json:"sessionId" validate:"required"`
	Kind      string `form:"kind" json:"kind" validate:"required,oneof=before after"`
	FileName  string `form:"file_name" json:"fileName" validate:"required,max=200"`
}

type PhotoStats struct {
	Sessions    int `json:"totalSessions"`
	Photos      int `json:"totalPhotos"`
	ThisMonth   int `json:"sessionsThisMonth"`
	AwaitAfters int `json:"awaitingAfterPhotos"`
}

func (s *PhotoService) Sessions(ctx context.Context, clientID, treatment, q string) ([]domain.PhotoSession, error) {
	all, err := s.Photos.Sessions(ctx, clientID)
	if err != nil {
		return nil, err
	}
	return listing.Apply(all,
		listing.Equal(treatment, func(p domain.PhotoSession) string { return p.Treatment }),
		listing.Search(q, func(p domain.PhotoSession) string { return p.PatientName }),
	), nil
}

func (s *PhotoService) CreateSession(ctx context.Context, clientID string, in SessionInput) (*domain.PhotoSession, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	if in.SessionDate == "" {
		in.SessionDate = s.Clock.today()
	}
	ps := &domain.PhotoSession{
		ID: uuid.NewString(), ClientID: clientID,
		PatientName: validate.CleanText(in.PatientName), Treatment: validate.CleanText(in.Treatment),
		SessionDate: in.SessionDate,
	}
	if err := s.Photos.CreateSession(ctx, ps); err != nil {
		return nil, err
	}
	return ps, nil
}

func (s *PhotoService) ListPhotos(ctx context.Context, clientID, sessionID string) ([]domain.Photo, error) {
	return s.Photos.Photos(ctx, clientID, sessionID)
}

// Upload records photo metadata. Only the base name of the file is kept.
func (s *PhotoService) Upload(ctx context.Context, clientID string, in PhotoInput) (*domain.Photo, error) {
	in.FileName = path.Base(strings.ReplaceAll(strings.TrimSpace(in.FileName), `\`, "/"))
	if in.FileName == "." || in.FileName == "/" {
		in.FileName = ""
	}
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	p := &domain.Photo{ID: uuid.NewString(), SessionID: in.SessionID, Kind: in.Kind, FileName: in.FileName}
	if err := s.Photos.AddPhoto(ctx, clientID, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *PhotoService) Delete(ctx context.Context, clientID, id string) error {
	return s.Photos.DeletePhoto(ctx, clientID, id)
}

func (s *PhotoService) Stats(ctx context.Context, clientID string) (PhotoStats, error) {
	var st PhotoStats
	sessions, err := s.Photos.Sessions(ctx, clientID)
	if err != nil {
		return st, err
	}
	photos, err := s.Photos.Photos(ctx, clientID, "")
	if err != nil {
		return st, err
	}
	st.Sessions, st.Photos = len(sessions), len(photos)
	month := s.Clock.now().Format("2006-01")
	hasAfter := map[string]bool{}
	for _, p := range photos {
		if p.Kind == "after" {
			hasAfter[p.SessionID] = true
		}
	}
	for _, ps := range sessions {
		if strings.HasPrefix(ps.SessionDate, month) {
			st.ThisMonth++
		}
		if !hasAfter[ps.ID] {
			st.AwaitAfters++
		}
	}
	return st, nil
}
