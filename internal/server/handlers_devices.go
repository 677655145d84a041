package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"cipherkeep/internal/api"
	"cipherkeep/internal/domain"
	"cipherkeep/internal/failure"
	"cipherkeep/internal/protocol/x3dh"
	"cipherkeep/internal/services/device"
)

const ivLen = 12

func (s *Server) handleRegisterDevice(c *gin.Context) {
	var up domain.DeviceUpload
	if err := bindJSON(c, &up); err != nil {
		s.abort(c, err)
		return
	}
	if up.RegistrationID < 1 || up.RegistrationID > device.MaxRegistrationID {
		s.abort(c, failure.InvalidArg("registration id out of range"))
		return
	}
	if up.SignedPreKey.KeyID == 0 {
		s.abort(c, failure.InvalidArg("signed prekey id 0 is reserved"))
		return
	}
	if !x3dh.VerifySignedPreKey(up.IdentityKey.Signing, up.SignedPreKey.Public, up.SignedPreKey.Signature) {
		s.abort(c, failure.ErrSignatureInvalid)
		return
	}
	reg := domain.DeviceRegistration{
		UserID:         callerID(c),
		DeviceID:       uuid.New(),
		RegistrationID: up.RegistrationID,
		IdentityKey:    up.IdentityKey,
		SignedPreKey:   up.SignedPreKey,
		State:          domain.StatePending,
	}
	ctx := c.Request.Context()
	if err := s.store.InsertDeviceRegistration(ctx, reg); err != nil {
		s.abort(c, err)
		return
	}
	s.log.InfoContext(ctx, "device registered", "device", reg.Address().String())
	c.JSON(http.StatusCreated, domain.DeviceStatus{DeviceID: reg.DeviceID, State: reg.State})
}

func (s *Server) handleUploadPreKeys(c *gin.Context) {
	addr, err := ownDevice(c)
	if err != nil {
		s.abort(c, err)
		return
	}
	var req api.UploadPreKeysRequest
	if err := bindJSON(c, &req); err != nil {
		s.abort(c, err)
		return
	}
	if len(req.PreKeys) > device.MaxPreKeyCount {
		s.abort(c, failure.Newf(failure.ReasonInvalidArgument, "at most %d one-time prekeys per batch", device.MaxPreKeyCount))
		return
	}
	ctx := c.Request.Context()
	reg, err := s.store.Device(ctx, addr)
	if err != nil {
		s.abort(c, err)
		return
	}
	err = s.store.InsertOneTimePreKeys(ctx, addr, req.PreKeys)
	// A retried first upload finds its keys already stored.
	if err != nil && !(reg.State == domain.StatePending && failure.Has(err, failure.ReasonAlreadyExists)) {
		s.abort(c, err)
		return
	}
	if reg.State == domain.StatePending {
		if err := s.advance(ctx, addr, domain.StatePending, domain.StateKeysUploaded); err != nil {
			s.abort(c, err)
			return
		}
	}
	st, err := s.status(ctx, addr)
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, api.UploadPreKeysResponse{Uploaded: len(req.PreKeys), DeviceStatus: st})
}

func (s *Server) handleStoreCustody(c *gin.Context) {
	addr, err := ownDevice(c)
	if err != nil {
		s.abort(c, err)
		return
	}
	var b domain.EncryptedPrivateKeyBundle
	if err := bindJSON(c, &b); err != nil {
		s.abort(c, err)
		return
	}
	if b.Owner() != addr {
		s.abort(c, failure.InvalidArg("custody bundle owner does not match device"))
		return
	}
	ctx := c.Request.Context()
	reg, err := s.store.Device(ctx, addr)
	if err != nil {
		s.abort(c, err)
		return
	}
	if err := checkCustody(b, reg); err != nil {
		s.abort(c, err)
		return
	}
	switch reg.State {
	case domain.StateKeysUploaded:
	case domain.StateCustodyStored, domain.StateActive:
		s.abort(c, failure.Wrap(failure.ReasonAlreadyExists, "custody bundle is write-once", failure.ErrAlreadyExists))
		return
	default:
		s.abort(c, failure.FailedPrecondition("upload one-time prekeys first"))
		return
	}
	err = s.store.StoreEncryptedPrivateKeys(ctx, b)
	// A retry after a failed transition finds the bundle stored.
	if err != nil && !failure.Has(err, failure.ReasonAlreadyExists) {
		s.abort(c, err)
		return
	}
	if err := s.advance(ctx, addr, domain.StateKeysUploaded, domain.StateCustodyStored); err != nil {
		s.abort(c, err)
		return
	}
	s.respondStatus(c, addr)
}

func (s *Server) handleActivate(c *gin.Context) {
	addr, err := ownDevice(c)
	if err != nil {
		s.abort(c, err)
		return
	}
	ctx := c.Request.Context()
	reg, err := s.store.Device(ctx, addr)
	if err != nil {
		s.abort(c, err)
		return
	}
	if reg.State != domain.StateActive {
		if err := s.advance(ctx, addr, domain.StateCustodyStored, domain.StateActive); err != nil {
			s.abort(c, err)
			return
		}
		s.log.InfoContext(ctx, "device activated", "device", addr.String())
	}
	s.respondStatus(c, addr)
}

func (s *Server) handleDeviceStatus(c *gin.Context) {
	addr, err := ownDevice(c)
	if err != nil {
		s.abort(c, err)
		return
	}
	s.respondStatus(c, addr)
}

func (s *Server) handleLoadCustody(c *gin.Context) {
	bundles, err := s.store.LoadEncryptedPrivateKeys(c.Request.Context(), callerID(c))
	if err != nil {
		s.abort(c, err)
		return
	}
	if bundles == nil {
		bundles = []domain.EncryptedPrivateKeyBundle{}
	}
	c.JSON(http.StatusOK, bundles)
}

func (s *Server) handleBundles(c *gin.Context) {
	ctx := c.Request.Context()
	acct, err := s.store.AccountByUsername(ctx, domain.Username(c.Param("username")))
	if err != nil {
		s.abort(c, err)
		return
	}
	bundles, err := s.alloc.Bundles(ctx, acct.ID)
	if err != nil {
		s.abort(c, err)
		return
	}
	if len(bundles) == 0 {
		s.abort(c, failure.New(failure.ReasonNotFound, "user has no active devices"))
		return
	}
	c.JSON(http.StatusOK, bundles)
}

func (s *Server) handleDeviceBundle(c *gin.Context) {
	ctx := c.Request.Context()
	acct, err := s.store.AccountByUsername(ctx, domain.Username(c.Param("username")))
	if err != nil {
		s.abort(c, err)
		return
	}
	d, err := uuid.Parse(c.Param("deviceId"))
	if err != nil {
		s.abort(c, failure.InvalidArg("invalid device id"))
		return
	}
	b, err := s.alloc.Bundle(ctx, domain.Address{UserID: acct.ID, DeviceID: d})
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (s *Server) advance(ctx context.Context, addr domain.Address, from, to domain.RegistrationState) error {
	if err := s.store.TransitionDevice(ctx, addr, from, to); err != nil {
		return err
	}
	s.log.DebugContext(ctx, "device state", "device", addr.String(), "from", from, "to", to)
	return nil
}

func (s *Server) status(ctx context.Context, addr domain.Address) (domain.DeviceStatus, error) {
	reg, err := s.store.Device(ctx, addr)
	if err != nil {
		return domain.DeviceStatus{}, err
	}
	n, err := s.store.CountAvailableOneTimePreKeys(ctx, addr)
	if err != nil {
		return domain.DeviceStatus{}, err
	}
	maxID, err := s.store.MaxOneTimePreKeyID(ctx, addr)
	if err != nil {
		return domain.DeviceStatus{}, err
	}
	return domain.DeviceStatus{DeviceID: reg.DeviceID, State: reg.State, AvailablePreKeys: n, MaxPreKeyID: maxID}, nil
}

func (s *Server) respondStatus(c *gin.Context, addr domain.Address) {
	st, err := s.status(c.Request.Context(), addr)
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// checkCustody rejects bundles that could never open into the registered
// device.
func checkCustody(b domain.EncryptedPrivateKeyBundle, reg domain.DeviceRegistration) error {
	if b.RegistrationID != reg.RegistrationID {
		return failure.InvalidArg("custody registration id does not match device")
	}
	if b.SignedPreKeyID != reg.SignedPreKey.KeyID {
		return failure.InvalidArg("custody signed prekey id does not match device")
	}
	if string(b.SignedPreKeySignature) != string(reg.SignedPreKey.Signature) {
		return failure.InvalidArg("custody signed prekey signature does not match device")
	}
	fields := []domain.SealedField{b.IdentityKey, b.SignedPreKey}
	for _, k := range b.OneTimePreKeys {
		fields = append(fields, k.Key)
	}
	for _, f := range fields {
		if len(f.IV) != ivLen || len(f.Ciphertext) == 0 {
			return failure.InvalidArg("malformed sealed field")
		}
	}
	return nil
}
