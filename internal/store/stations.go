package store

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"

	"github.com/arall/sigint/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	tokenLength   = 40
	tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// NewToken generates a station bearer token. Tokens are random alphanumeric
// strings, generated once at registration and never rotated.
func NewToken() (string, error) {
	buf := make([]byte, tokenLength)
	max := big.NewInt(int64(len(tokenAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = tokenAlphabet[n.Int64()]
	}
	return string(buf), nil
}

// CreateStation registers a scanning agent and returns it with its token set.
// The token is only ever shown here; reads through the API omit it.
func (r *Repo) CreateStation(ctx context.Context, name string) (*model.Station, error) {
	if name == "" {
		return nil, errors.New("empty station name")
	}
	token, err := NewToken()
	if err != nil {
		return nil, err
	}
	station := model.Station{ID: uuid.New(), Name: name, Token: token}
	if err := r.db.WithContext(ctx).Create(&station).Error; err != nil {
		return nil, err
	}
	return &station, nil
}

// StationByToken resolves a bearer token. An unknown token returns (nil, nil)
// so the HTTP layer can map it to 401 without inspecting the error.
func (r *Repo) StationByToken(ctx context.Context, token string) (*model.Station, error) {
	if token == "" {
		return nil, nil
	}
	var station model.Station
	err := r.db.WithContext(ctx).Where("token = ?", token).First(&station).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &station, nil
}

func (r *Repo) ListStations(ctx context.Context) ([]model.Station, error) {
	var stations []model.Station
	err := r.db.WithContext(ctx).Order("created_at").Find(&stations).Error
	return stations, err
}
