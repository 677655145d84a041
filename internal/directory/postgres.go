package directory

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"

	"cipherkeep/internal/domain"
	"cipherkeep/internal/failure"
)

// PostgresStore is the bun-backed directory store.
type PostgresStore struct {
	db *bun.DB
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore wraps db. Call CreateTables once before use.
func NewPostgresStore(db *bun.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// dbErr maps driver errors onto failure reasons and annotates the rest.
func dbErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return failure.Wrap(failure.ReasonNotFound, op, err)
	}
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) && pgErr.Field('C') == "23505" {
		return failure.Wrap(failure.ReasonAlreadyExists, op, err)
	}
	return errors.Wrap(err, op)
}

func (s *PostgresStore) CreateAccount(ctx context.Context, a *domain.Account) error {
	m := &accountModel{
		ID:           a.ID,
		Username:     a.Username.String(),
		Salt:         a.Salt,
		VerifierHash: a.VerifierHash,
		CreatedAt:    a.CreatedAt,
	}
	if _, err := s.db.NewInsert().Model(m).Returning("*").Exec(ctx); err != nil {
		return dbErr("directory.CreateAccount.Insert", err)
	}
	a.CreatedAt = m.CreatedAt
	return nil
}

func (s *PostgresStore) AccountByUsername(ctx context.Context, u domain.Username) (domain.Account, error) {
	m := new(accountModel)
	if err := s.db.NewSelect().Model(m).Where("username = ?", u.String()).Scan(ctx); err != nil {
		return domain.Account{}, dbErr("directory.AccountByUsername.Scan", err)
	}
	return m.toDomain(), nil
}

func (s *PostgresStore) AccountByID(ctx context.Context, id domain.UserID) (domain.Account, error) {
	m := new(accountModel)
	if err := s.db.NewSelect().Model(m).Where("id = ?", id).Scan(ctx); err != nil {
		return domain.Account{}, dbErr("directory.AccountByID.Scan", err)
	}
	return m.toDomain(), nil
}

func (s *PostgresStore) InsertDeviceRegistration(ctx context.Context, d domain.DeviceRegistration) error {
	if _, err := s.db.NewInsert().Model(newDeviceModel(d)).Exec(ctx); err != nil {
		return dbErr("directory.InsertDeviceRegistration.Insert", err)
	}
	return nil
}

func (s *PostgresStore) Device(ctx context.Context, addr domain.Address) (domain.DeviceRegistration, error) {
	m := new(deviceModel)
	err := s.db.NewSelect().Model(m).
		Where("user_id = ? AND device_id = ?", addr.UserID, addr.DeviceID).
		Scan(ctx)
	if err != nil {
		return domain.DeviceRegistration{}, dbErr("directory.Device.Scan", err)
	}
	return m.toDomain(), nil
}

func (s *PostgresStore) ListDevices(ctx context.Context, userID domain.UserID) ([]domain.DeviceRegistration, error) {
	return listDevices(ctx, s.db, userID, false)
}

func listDevices(ctx context.Context, db bun.IDB, userID domain.UserID, activeOnly bool) ([]domain.DeviceRegistration, error) {
	var rows []deviceModel
	q := db.NewSelect().Model(&rows).Where("user_id = ?", userID)
	if activeOnly {
		q = q.Where("state = ?", string(domain.StateActive))
	}
	if err := q.Order("created_at ASC", "device_id ASC").Scan(ctx); err != nil {
		return nil, dbErr("directory.ListDevices.Scan", err)
	}
	out := make([]domain.DeviceRegistration, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *PostgresStore) TransitionDevice(ctx context.Context, addr domain.Address, from, to domain.RegistrationState) error {
	if err := checkTransition(from, to); err != nil {
		return err
	}
	res, err := s.db.NewUpdate().
		Model((*deviceModel)(nil)).
		Set("state = ?", string(to)).
		Set("updated_at = ?", time.Now().UTC()).
		Where("user_id = ? AND device_id = ? AND state = ?", addr.UserID, addr.DeviceID, string(from)).
		Exec(ctx)
	if err != nil {
		return dbErr("directory.TransitionDevice.Update", err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}
	cur, err := s.Device(ctx, addr)
	if err != nil {
		return err
	}
	return failure.Newf(failure.ReasonFailedPrecondition, "device is %s, not %s", cur.State, from)
}

func (s *PostgresStore) InsertOneTimePreKeys(ctx context.Context, addr domain.Address, batch []domain.OneTimePreKeyPublic) error {
	if err := checkBatch(batch); err != nil {
		return err
	}
	rows := make([]oneTimePreKeyModel, 0, len(batch))
	for _, k := range batch {
		rows = append(rows, oneTimePreKeyModel{
			UserID:    addr.UserID,
			DeviceID:  addr.DeviceID,
			KeyID:     uint32(k.KeyID),
			PublicKey: k.Public.Slice(),
		})
	}
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().Model((*deviceModel)(nil)).
			Where("user_id = ? AND device_id = ?", addr.UserID, addr.DeviceID).
			Exists(ctx)
		if err != nil {
			return dbErr("directory.InsertOneTimePreKeys.Device", err)
		}
		if !exists {
			return failure.ErrNotFound
		}
		if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
			return dbErr("directory.InsertOneTimePreKeys.Insert", err)
		}
		return nil
	})
}

func (s *PostgresStore) ConsumeOneOneTimePreKey(ctx context.Context, addr domain.Address) (domain.OneTimePreKeyPublic, bool, error) {
	var (
		key domain.OneTimePreKeyPublic
		ok  bool
	)
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		key, ok, err = consumeOne(ctx, tx, addr)
		return err
	})
	return key, ok, err
}

// consumeOne claims the lowest unused key of addr. SKIP LOCKED lets
// concurrent claims for the same device move on to the next row instead of
// waiting, and the row lock guarantees no two callers get the same key.
func consumeOne(ctx context.Context, tx bun.Tx, addr domain.Address) (domain.OneTimePreKeyPublic, bool, error) {
	row := new(oneTimePreKeyModel)
	err := tx.NewSelect().
		Model(row).
		Where("user_id = ? AND device_id = ? AND used = false", addr.UserID, addr.DeviceID).
		Order("key_id ASC").
		Limit(1).
		For("UPDATE SKIP LOCKED").
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.OneTimePreKeyPublic{}, false, nil
	}
	if err != nil {
		return domain.OneTimePreKeyPublic{}, false, dbErr("directory.consumeOne.Select", err)
	}

	_, err = tx.NewUpdate().
		Model(row).
		Set("used = ?", true).
		Set("consumed_at = ?", time.Now().UTC()).
		WherePK().
		Exec(ctx)
	if err != nil {
		return domain.OneTimePreKeyPublic{}, false, dbErr("directory.consumeOne.Update", err)
	}
	return row.toDomain(), true, nil
}

func (s *PostgresStore) CountAvailableOneTimePreKeys(ctx context.Context, addr domain.Address) (int, error) {
	n, err := s.db.NewSelect().
		Model((*oneTimePreKeyModel)(nil)).
		Where("user_id = ? AND device_id = ? AND used = false", addr.UserID, addr.DeviceID).
		Count(ctx)
	if err != nil {
		return 0, dbErr("directory.CountAvailableOneTimePreKeys.Count", err)
	}
	return n, nil
}

func (s *PostgresStore) MaxOneTimePreKeyID(ctx context.Context, addr domain.Address) (domain.OneTimePreKeyID, error) {
	var maxID sql.NullInt64
	err := s.db.NewSelect().
		Model((*oneTimePreKeyModel)(nil)).
		ColumnExpr("MAX(key_id)").
		Where("user_id = ? AND device_id = ?", addr.UserID, addr.DeviceID).
		Scan(ctx, &maxID)
	if err != nil {
		return 0, dbErr("directory.MaxOneTimePreKeyID.Select", err)
	}
	return domain.OneTimePreKeyID(maxID.Int64), nil
}

func (s *PostgresStore) StoreEncryptedPrivateKeys(ctx context.Context, b domain.EncryptedPrivateKeyBundle) error {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	m := &custodyModel{UserID: b.UserID, DeviceID: b.DeviceID, Bundle: b, CreatedAt: b.CreatedAt}
	if _, err := s.db.NewInsert().Model(m).Exec(ctx); err != nil {
		return dbErr("directory.StoreEncryptedPrivateKeys.Insert", err)
	}
	return nil
}

func (s *PostgresStore) LoadEncryptedPrivateKeys(ctx context.Context, userID domain.UserID) ([]domain.EncryptedPrivateKeyBundle, error) {
	var rows []custodyModel
	err := s.db.NewSelect().Model(&rows).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, dbErr("directory.LoadEncryptedPrivateKeys.Scan", err)
	}
	out := make([]domain.EncryptedPrivateKeyBundle, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Bundle)
	}
	return out, nil
}

func (s *PostgresStore) FetchRegistrationBundle(ctx context.Context, userID domain.UserID) ([]domain.PreKeyBundle, error) {
	if _, err := s.AccountByID(ctx, userID); err != nil {
		return nil, err
	}
	var out []domain.PreKeyBundle
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		devices, err := listDevices(ctx, tx, userID, true)
		if err != nil {
			return err
		}
		out = make([]domain.PreKeyBundle, 0, len(devices))
		for _, d := range devices {
			b, err := bundleTx(ctx, tx, d)
			if err != nil {
				return err
			}
			out = append(out, b)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func bundleTx(ctx context.Context, tx bun.Tx, d domain.DeviceRegistration) (domain.PreKeyBundle, error) {
	k, ok, err := consumeOne(ctx, tx, d.Address())
	if err != nil {
		return domain.PreKeyBundle{}, err
	}
	if !ok {
		return bundleFor(d, nil), nil
	}
	return bundleFor(d, &k), nil
}
