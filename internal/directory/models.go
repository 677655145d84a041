package directory

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"cipherkeep/internal/domain"
)

type accountModel struct {
	bun.BaseModel `bun:"table:accounts"`

	ID           uuid.UUID `bun:",pk,type:uuid"`
	Username     string    `bun:",unique,notnull"`
	Salt         []byte    `bun:",notnull"`
	VerifierHash string    `bun:",notnull"`
	CreatedAt    time.Time `bun:",nullzero,notnull,default:current_timestamp"`
}

func (m accountModel) toDomain() domain.Account {
	return domain.Account{
		ID:           m.ID,
		Username:     domain.Username(m.Username),
		Salt:         m.Salt,
		VerifierHash: m.VerifierHash,
		CreatedAt:    m.CreatedAt,
	}
}

type deviceModel struct {
	bun.BaseModel `bun:"table:devices"`

	UserID   uuid.UUID     `bun:",pk,type:uuid"`
	DeviceID uuid.UUID     `bun:",pk,type:uuid"`
	Account  *accountModel `bun:"rel:belongs-to,join:user_id=id"`

	RegistrationID  uint32    `bun:",notnull"`
	IdentityDH      []byte    `bun:",notnull"` // 32 bytes X25519
	IdentitySigning []byte    `bun:",notnull"` // 32 bytes Ed25519
	SignedPreKeyID  uint32    `bun:",notnull"`
	SignedPreKey    []byte    `bun:",notnull"`
	SignedPreKeySig []byte    `bun:",notnull"`
	State           string    `bun:",notnull"`
	CreatedAt       time.Time `bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt       time.Time `bun:",nullzero,notnull,default:current_timestamp"`
}

func newDeviceModel(d domain.DeviceRegistration) *deviceModel {
	return &deviceModel{
		UserID:          d.UserID,
		DeviceID:        d.DeviceID,
		RegistrationID:  uint32(d.RegistrationID),
		IdentityDH:      d.IdentityKey.DH.Slice(),
		IdentitySigning: d.IdentityKey.Signing.Slice(),
		SignedPreKeyID:  uint32(d.SignedPreKey.KeyID),
		SignedPreKey:    d.SignedPreKey.Public.Slice(),
		SignedPreKeySig: d.SignedPreKey.Signature,
		State:           string(d.State),
		CreatedAt:       d.CreatedAt,
	}
}

func (m deviceModel) toDomain() domain.DeviceRegistration {
	d := domain.DeviceRegistration{
		UserID:         m.UserID,
		DeviceID:       m.DeviceID,
		RegistrationID: domain.RegistrationID(m.RegistrationID),
		SignedPreKey: domain.SignedPreKeyPublic{
			KeyID:     domain.SignedPreKeyID(m.SignedPreKeyID),
			Signature: m.SignedPreKeySig,
		},
		State:     domain.RegistrationState(m.State),
		CreatedAt: m.CreatedAt,
	}
	copy(d.IdentityKey.DH[:], m.IdentityDH)
	copy(d.IdentityKey.Signing[:], m.IdentitySigning)
	copy(d.SignedPreKey.Public[:], m.SignedPreKey)
	return d
}

type oneTimePreKeyModel struct {
	bun.BaseModel `bun:"table:one_time_prekeys"`

	ID       int64     `bun:",pk,autoincrement"`
	UserID   uuid.UUID `bun:",notnull,type:uuid"`
	DeviceID uuid.UUID `bun:",notnull,type:uuid"`

	KeyID      uint32    `bun:",notnull"`
	PublicKey  []byte    `bun:",notnull"` // 32 bytes X25519
	Used       bool      `bun:",notnull,default:false"`
	UploadedAt time.Time `bun:",nullzero,notnull,default:current_timestamp"`
	ConsumedAt time.Time `bun:",nullzero"`
}

func (m oneTimePreKeyModel) toDomain() domain.OneTimePreKeyPublic {
	k := domain.OneTimePreKeyPublic{KeyID: domain.OneTimePreKeyID(m.KeyID)}
	copy(k.Public[:], m.PublicKey)
	return k
}

type custodyModel struct {
	bun.BaseModel `bun:"table:custody_bundles"`

	UserID    uuid.UUID                        `bun:",pk,type:uuid"`
	DeviceID  uuid.UUID                        `bun:",pk,type:uuid"`
	Bundle    domain.EncryptedPrivateKeyBundle `bun:"type:jsonb,notnull"`
	CreatedAt time.Time                        `bun:",nullzero,notnull,default:current_timestamp"`
}
