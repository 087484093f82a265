package service

import (
	"context"
	"encoding/base64"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"telegram-grower-bot/internal/ledger"
	"telegram-grower-bot/internal/model"
	"telegram-grower-bot/internal/pkg/day"
)

// DeepLinkPrefix marks a /start payload carrying a promo code.
const DeepLinkPrefix = "promo-"

var promoCodePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{4,16}$`)

// errors that abort the activation transaction
var (
	errNoActivationsLeft = errors.New("no activations left")
	errNoDicks           = errors.New("no dicks")
)

// PromoStatus tells how a promo activation ended.
type PromoStatus int

const (
	PromoActivated PromoStatus = iota
	PromoNoActivationsLeft
	PromoNoDicks
	PromoAlreadyActivated
)

func (s PromoStatus) String() string {
	switch s {
	case PromoActivated:
		return "activated"
	case PromoNoActivationsLeft:
		return "no_activations_left"
	case PromoNoDicks:
		return "no_dicks"
	case PromoAlreadyActivated:
		return "already_activated"
	default:
		return "unknown"
	}
}

// PromoOutcome is the result of PromoService.Activate.
type PromoOutcome struct {
	Status        PromoStatus
	Code          string
	Bonus         int64
	AffectedChats int
}

// PromoService handles promo codes.
type PromoService struct {
	store    ledger.Store
	timezone *time.Location
}

// NewPromoService creates a new PromoService instance.
func NewPromoService(store ledger.Store, timezone *time.Location) *PromoService {
	return &PromoService{store: store, timezone: loadLocation(timezone)}
}

// ValidCode reports whether code has the accepted promo code format.
func ValidCode(code string) bool {
	return promoCodePattern.MatchString(code)
}

// EncodeDeepLink returns the /start payload for a promo code.
func EncodeDeepLink(code string) string {
	return DeepLinkPrefix + base64.RawURLEncoding.EncodeToString([]byte(code))
}

// DecodeDeepLink extracts a promo code from a /start payload.
func DecodeDeepLink(payload string) (string, bool) {
	encoded, ok := strings.CutPrefix(payload, DeepLinkPrefix)
	if !ok {
		return "", false
	}
	code, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil || !ValidCode(string(code)) {
		return "", false
	}
	return string(code), true
}

// Activate redeems a promo code: one activation is taken from the code and
// its bonus is added to every record of the player. Each player may redeem
// a code once.
func (s *PromoService) Activate(ctx context.Context, player Player, code string, now time.Time) (*PromoOutcome, error) {
	out := &PromoOutcome{Code: code}
	if !ValidCode(code) {
		out.Status = PromoNoActivationsLeft
		return out, nil
	}

	err := s.store.InTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		if _, err := tx.UpsertUser(ctx, player.UID, player.Name, now); err != nil {
			return err
		}
		p, err := tx.ConsumePromo(ctx, code, day.Date(now, s.timezone))
		if errors.Is(err, ledger.ErrNotFound) {
			return errNoActivationsLeft
		}
		if err != nil {
			return err
		}

		affected, err := tx.GrowAllDicks(ctx, player.UID, p.BonusLength, 1)
		if err != nil {
			return err
		}
		if affected == 0 {
			return errNoDicks
		}

		if err := tx.InsertActivation(ctx, model.PromoActivation{
			UID:           player.UID,
			Code:          p.Code,
			AffectedChats: affected,
			CreatedAt:     now,
		}); err != nil {
			return err
		}

		out.Code = p.Code
		out.Bonus = p.BonusLength
		out.AffectedChats = affected
		return nil
	})

	switch {
	case err == nil:
		out.Status = PromoActivated
		log.Info().Int64("uid", player.UID).Str("code", out.Code).Int("chats", out.AffectedChats).Msg("Promo code activated")
		return out, nil
	case errors.Is(err, errNoActivationsLeft):
		out.Status = PromoNoActivationsLeft
		return out, nil
	case errors.Is(err, errNoDicks):
		out.Status = PromoNoDicks
		return out, nil
	case errors.Is(err, ledger.ErrConflict):
		log.Debug().Int64("uid", player.UID).Str("code", code).Msg("Promo code already activated")
		out.Status = PromoAlreadyActivated
		return out, nil
	default:
		return nil, storeFailure("activate promo code", err)
	}
}

// Create registers a new promo code.
func (s *PromoService) Create(ctx context.Context, p model.PromoCode) error {
	if !ValidCode(p.Code) {
		return errors.New("invalid promo code format")
	}
	err := s.store.CreatePromo(ctx, p)
	if errors.Is(err, ledger.ErrConflict) {
		return ErrPromoExists
	}
	if err != nil {
		return storeFailure("create promo code", err)
	}
	return nil
}
