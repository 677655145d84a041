package mongostore

import (
	"time"

	"github.com/google/uuid"

	"cipherkeep/internal/domain"
)

type sealedDoc struct {
	Ciphertext []byte `bson:"ciphertext"`
	IV         []byte `bson:"iv"`
}

type oneTimePreKeyDoc struct {
	KeyID uint32    `bson:"key_id"`
	Key   sealedDoc `bson:"key"`
}

type custodyDoc struct {
	UserID                string             `bson:"user_id"`
	DeviceID              string             `bson:"device_id"`
	RegistrationID        uint32             `bson:"registration_id"`
	IdentityKey           sealedDoc          `bson:"identity_key"`
	SignedPreKeyID        uint32             `bson:"signed_prekey_id"`
	SignedPreKey          sealedDoc          `bson:"signed_prekey"`
	SignedPreKeySignature []byte             `bson:"signed_prekey_signature"`
	SignedPreKeyTimestamp time.Time          `bson:"signed_prekey_timestamp"`
	OneTimePreKeys        []oneTimePreKeyDoc `bson:"one_time_prekeys"`
	CreatedAt             time.Time          `bson:"created_at"`
}

func sealed(f domain.SealedField) sealedDoc {
	return sealedDoc{Ciphertext: f.Ciphertext, IV: f.IV}
}

func (d sealedDoc) toDomain() domain.SealedField {
	return domain.SealedField{Ciphertext: d.Ciphertext, IV: d.IV}
}

func toDoc(b domain.EncryptedPrivateKeyBundle) custodyDoc {
	opks := make([]oneTimePreKeyDoc, 0, len(b.OneTimePreKeys))
	for _, k := range b.OneTimePreKeys {
		opks = append(opks, oneTimePreKeyDoc{KeyID: uint32(k.KeyID), Key: sealed(k.Key)})
	}
	return custodyDoc{
		UserID:                b.UserID.String(),
		DeviceID:              b.DeviceID.String(),
		RegistrationID:        uint32(b.RegistrationID),
		IdentityKey:           sealed(b.IdentityKey),
		SignedPreKeyID:        uint32(b.SignedPreKeyID),
		SignedPreKey:          sealed(b.SignedPreKey),
		SignedPreKeySignature: b.SignedPreKeySignature,
		SignedPreKeyTimestamp: b.SignedPreKeyTimestamp,
		OneTimePreKeys:        opks,
		CreatedAt:             b.CreatedAt,
	}
}

func (d custodyDoc) toDomain() (domain.EncryptedPrivateKeyBundle, error) {
	userID, err := uuid.Parse(d.UserID)
	if err != nil {
		return domain.EncryptedPrivateKeyBundle{}, err
	}
	deviceID, err := uuid.Parse(d.DeviceID)
	if err != nil {
		return domain.EncryptedPrivateKeyBundle{}, err
	}
	opks := make([]domain.SealedOneTimePreKey, 0, len(d.OneTimePreKeys))
	for _, k := range d.OneTimePreKeys {
		opks = append(opks, domain.SealedOneTimePreKey{KeyID: domain.OneTimePreKeyID(k.KeyID), Key: k.Key.toDomain()})
	}
	return domain.EncryptedPrivateKeyBundle{
		UserID:                userID,
		DeviceID:              deviceID,
		RegistrationID:        domain.RegistrationID(d.RegistrationID),
		IdentityKey:           d.IdentityKey.toDomain(),
		SignedPreKeyID:        domain.SignedPreKeyID(d.SignedPreKeyID),
		SignedPreKey:          d.SignedPreKey.toDomain(),
		SignedPreKeySignature: d.SignedPreKeySignature,
		SignedPreKeyTimestamp: d.SignedPreKeyTimestamp.UTC(),
		OneTimePreKeys:        opks,
		CreatedAt:             d.CreatedAt.UTC(),
	}, nil
}
