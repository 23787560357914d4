// Package postgres implements the storage interfaces backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/coffeechain-labs/coffeeshop/internal/app/domain/access"
	"github.com/coffeechain-labs/coffeeshop/internal/app/domain/catalog"
	"github.com/coffeechain-labs/coffeeshop/internal/app/domain/coffee"
	"github.com/coffeechain-labs/coffeeshop/internal/app/domain/identity"
	"github.com/coffeechain-labs/coffeeshop/internal/app/domain/menu"
	"github.com/coffeechain-labs/coffeeshop/internal/app/storage"
)

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sqlx.DB
}

var _ storage.CatalogStore = (*Store)(nil)
var _ storage.MenuStore = (*Store)(nil)
var _ storage.RoleStore = (*Store)(nil)
var _ storage.CoffeeStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// entryRow is the column shape shared by all five catalog collections. Kinds
// without a price or default size leave those columns NULL.
type entryRow struct {
	present     bool
	name        string
	image       []string
	price       *big.Int
	defaultSize sql.NullInt64
}

// --- CatalogStore -----------------------------------------------------------

func (s *Store) AppendSizes(ctx context.Context, entries []catalog.Size) ([]uint32, error) {
	rows := make([]entryRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, entryRow{present: e.Exists, name: e.Name, image: e.Image[:], price: e.Price})
	}
	return s.appendEntries(ctx, catalog.KindSize, rows)
}

func (s *Store) RevokeSize(ctx context.Context, index uint32) error {
	return s.revokeEntry(ctx, catalog.KindSize, index)
}

func (s *Store) GetSize(ctx context.Context, index uint32) (catalog.Size, error) {
	row, err := s.getEntry(ctx, catalog.KindSize, index)
	if err != nil {
		return catalog.Size{}, err
	}
	e := catalog.Size{Exists: row.present, Name: row.name, Price: row.price}
	copy(e.Image[:], row.image)
	return e, nil
}

func (s *Store) SizeCount(ctx context.Context) (uint32, error) {
	return s.entryCount(ctx, catalog.KindSize)
}

func (s *Store) AppendBases(ctx context.Context, entries []catalog.Base) ([]uint32, error) {
	rows := make([]entryRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, entryRow{
			present:     e.Exists,
			name:        e.Name,
			image:       e.Image[:],
			price:       e.Price,
			defaultSize: sql.NullInt64{Int64: int64(e.DefaultSize), Valid: true},
		})
	}
	return s.appendEntries(ctx, catalog.KindBase, rows)
}

func (s *Store) RevokeBase(ctx context.Context, index uint32) error {
	return s.revokeEntry(ctx, catalog.KindBase, index)
}

func (s *Store) GetBase(ctx context.Context, index uint32) (catalog.Base, error) {
	row, err := s.getEntry(ctx, catalog.KindBase, index)
	if err != nil {
		return catalog.Base{}, err
	}
	e := catalog.Base{Exists: row.present, Name: row.name, Price: row.price}
	if row.defaultSize.Valid {
		e.DefaultSize = uint32(row.defaultSize.Int64)
	}
	copy(e.Image[:], row.image)
	return e, nil
}

func (s *Store) BaseCount(ctx context.Context) (uint32, error) {
	return s.entryCount(ctx, catalog.KindBase)
}

func (s *Store) AppendSyrups(ctx context.Context, entries []catalog.Syrup) ([]uint32, error) {
	rows := make([]entryRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, entryRow{present: e.Exists, name: e.Name, image: e.Image[:], price: e.Price})
	}
	return s.appendEntries(ctx, catalog.KindSyrup, rows)
}

func (s *Store) RevokeSyrup(ctx context.Context, index uint32) error {
	return s.revokeEntry(ctx, catalog.KindSyrup, index)
}

func (s *Store) GetSyrup(ctx context.Context, index uint32) (catalog.Syrup, error) {
	row, err := s.getEntry(ctx, catalog.KindSyrup, index)
	if err != nil {
		return catalog.Syrup{}, err
	}
	e := catalog.Syrup{Exists: row.present, Name: row.name, Price: row.price}
	copy(e.Image[:], row.image)
	return e, nil
}

func (s *Store) SyrupCount(ctx context.Context) (uint32, error) {
	return s.entryCount(ctx, catalog.KindSyrup)
}

func (s *Store) AppendPowders(ctx context.Context, entries []catalog.Powder) ([]uint32, error) {
	rows := make([]entryRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, entryRow{present: e.Exists, name: e.Name, image: e.Image[:], price: e.Price})
	}
	return s.appendEntries(ctx, catalog.KindPowder, rows)
}

func (s *Store) RevokePowder(ctx context.Context, index uint32) error {
	return s.revokeEntry(ctx, catalog.KindPowder, index)
}

func (s *Store) GetPowder(ctx context.Context, index uint32) (catalog.Powder, error) {
	row, err := s.getEntry(ctx, catalog.KindPowder, index)
	if err != nil {
		return catalog.Powder{}, err
	}
	e := catalog.Powder{Exists: row.present, Name: row.name, Price: row.price}
	copy(e.Image[:], row.image)
	return e, nil
}

func (s *Store) PowderCount(ctx context.Context) (uint32, error) {
	return s.entryCount(ctx, catalog.KindPowder)
}

func (s *Store) AppendMilks(ctx context.Context, entries []catalog.Milk) ([]uint32, error) {
	rows := make([]entryRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, entryRow{present: e.Exists, name: e.Name, image: e.Image[:]})
	}
	return s.appendEntries(ctx, catalog.KindMilk, rows)
}

func (s *Store) RevokeMilk(ctx context.Context, index uint32) error {
	return s.revokeEntry(ctx, catalog.KindMilk, index)
}

func (s *Store) GetMilk(ctx context.Context, index uint32) (catalog.Milk, error) {
	row, err := s.getEntry(ctx, catalog.KindMilk, index)
	if err != nil {
		return catalog.Milk{}, err
	}
	e := catalog.Milk{Exists: row.present, Name: row.name}
	copy(e.Image[:], row.image)
	return e, nil
}

func (s *Store) MilkCount(ctx context.Context) (uint32, error) {
	return s.entryCount(ctx, catalog.KindMilk)
}

func (s *Store) appendEntries(ctx context.Context, kind catalog.Kind, rows []entryRow) ([]uint32, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// Serialize appends per kind so concurrently allocated indices stay
	// sequential.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext('catalog_' || $1))`, string(kind)); err != nil {
		return nil, err
	}

	var next uint32
	if err := tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(idx) + 1, 0) FROM catalog_entries WHERE kind = $1
	`, string(kind)).Scan(&next); err != nil {
		return nil, err
	}

	indices := make([]uint32, 0, len(rows))
	for i, row := range rows {
		idx := next + uint32(i)
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO catalog_entries (kind, idx, present, name, image, price, default_size)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, string(kind), idx, row.present, row.name, pq.Array(row.image), bigToNumeric(row.price), row.defaultSize); err != nil {
			return nil, err
		}
		indices = append(indices, idx)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return indices, nil
}

func (s *Store) revokeEntry(ctx context.Context, kind catalog.Kind, index uint32) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE catalog_entries
		SET present = FALSE, name = '', image = '{}', price = NULL, default_size = NULL
		WHERE kind = $1 AND idx = $2
	`, string(kind), index)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return catalog.NotFoundError{Kind: kind, Index: index}
	}
	return nil
}

func (s *Store) getEntry(ctx context.Context, kind catalog.Kind, index uint32) (entryRow, error) {
	var (
		row      entryRow
		image    pq.StringArray
		priceRaw sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT present, name, image, price, default_size
		FROM catalog_entries
		WHERE kind = $1 AND idx = $2
	`, string(kind), index).Scan(&row.present, &row.name, &image, &priceRaw, &row.defaultSize)
	if errors.Is(err, sql.ErrNoRows) {
		length, cerr := s.entryCount(ctx, kind)
		if cerr != nil {
			return entryRow{}, cerr
		}
		return entryRow{}, catalog.IndexOutOfRangeError{Kind: kind, Index: index, Length: length}
	}
	if err != nil {
		return entryRow{}, err
	}
	row.image = image
	if priceRaw.Valid {
		price, ok := new(big.Int).SetString(priceRaw.String, 10)
		if !ok {
			return entryRow{}, fmt.Errorf("invalid price %q for %s %d", priceRaw.String, kind, index)
		}
		row.price = price
	}
	return row, nil
}

func (s *Store) entryCount(ctx context.Context, kind catalog.Kind) (uint32, error) {
	var n uint32
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM catalog_entries WHERE kind = $1
	`, string(kind)).Scan(&n)
	return n, err
}

// --- MenuStore --------------------------------------------------------------

func (s *Store) SetAllowedProduct(ctx context.Context, base uint32, axes menu.Axes) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO allowed_products (base_idx, sizes, milks, syrups, powders)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (base_idx) DO UPDATE
		SET sizes = EXCLUDED.sizes, milks = EXCLUDED.milks, syrups = EXCLUDED.syrups, powders = EXCLUDED.powders
	`, base, toInt64Array(axes.Sizes), toInt64Array(axes.Milks), toInt64Array(axes.Syrups), toInt64Array(axes.Powders))
	return err
}

func (s *Store) GetAllowedProduct(ctx context.Context, base uint32) (menu.Axes, error) {
	var sizes, milks, syrups, powders pq.Int64Array
	err := s.db.QueryRowContext(ctx, `
		SELECT sizes, milks, syrups, powders
		FROM allowed_products
		WHERE base_idx = $1
	`, base).Scan(&sizes, &milks, &syrups, &powders)
	if errors.Is(err, sql.ErrNoRows) {
		return menu.Axes{}, nil
	}
	if err != nil {
		return menu.Axes{}, err
	}
	return menu.Axes{
		Sizes:   fromInt64Array(sizes),
		Milks:   fromInt64Array(milks),
		Syrups:  fromInt64Array(syrups),
		Powders: fromInt64Array(powders),
	}, nil
}

func (s *Store) IsAllowedProduct(ctx context.Context, base, size, milk, syrup, powder uint32) (bool, error) {
	var allowed bool
	err := s.db.QueryRowContext(ctx, `
		SELECT $2 = ANY(sizes) AND $3 = ANY(milks) AND $4 = ANY(syrups) AND $5 = ANY(powders)
		FROM allowed_products
		WHERE base_idx = $1
	`, base, int64(size), int64(milk), int64(syrup), int64(powder)).Scan(&allowed)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return allowed, nil
}

// --- RoleStore --------------------------------------------------------------

func (s *Store) GrantRole(ctx context.Context, role access.Role, account identity.Address) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO role_grants (role, account)
		VALUES ($1, $2)
		ON CONFLICT (role, account) DO NOTHING
	`, string(role), account.Hex())
	return err
}

func (s *Store) RevokeRole(ctx context.Context, role access.Role, account identity.Address) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM role_grants WHERE role = $1 AND account = $2
	`, string(role), account.Hex())
	return err
}

func (s *Store) HasRole(ctx context.Context, role access.Role, account identity.Address) (bool, error) {
	var held bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM role_grants WHERE role = $1 AND account = $2)
	`, string(role), account.Hex()).Scan(&held)
	return held, err
}

// --- CoffeeStore ------------------------------------------------------------

func (s *Store) MintCoffees(ctx context.Context, owner identity.Address, compositions []coffee.Composition) ([]coffee.Coffee, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	minted := make([]coffee.Coffee, 0, len(compositions))
	for _, comp := range compositions {
		c := coffee.Coffee{Composition: comp, Owner: owner}
		err := tx.QueryRowContext(ctx, `
			INSERT INTO coffees (id, base, size, milk, syrup, powder, owner, minted_at)
			VALUES (nextval('coffee_ids'), $1, $2, $3, $4, $5, $6, NOW())
			RETURNING id, minted_at
		`, comp.Base, comp.Size, comp.Milk, comp.Syrup, comp.Powder, owner.Hex()).Scan(&c.ID, &c.MintedAt)
		if err != nil {
			return nil, err
		}
		c.MintedAt = c.MintedAt.UTC()
		minted = append(minted, c)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return minted, nil
}

func (s *Store) GetCoffee(ctx context.Context, id uint64) (coffee.Coffee, error) {
	var (
		c        coffee.Coffee
		ownerHex string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, base, size, milk, syrup, powder, owner, minted_at
		FROM coffees
		WHERE id = $1
	`, id).Scan(&c.ID, &c.Composition.Base, &c.Composition.Size, &c.Composition.Milk, &c.Composition.Syrup, &c.Composition.Powder, &ownerHex, &c.MintedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return coffee.Coffee{}, coffee.ErrNotFound
	}
	if err != nil {
		return coffee.Coffee{}, err
	}
	c.Owner, err = identity.ParseAddress(ownerHex)
	if err != nil {
		return coffee.Coffee{}, err
	}
	c.MintedAt = c.MintedAt.UTC()
	return c, nil
}

func (s *Store) CoffeesOf(ctx context.Context, owner identity.Address) ([]uint64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM coffees WHERE owner = $1 ORDER BY owner_seq
	`, owner.Hex())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]uint64, 0)
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) TransferCoffee(ctx context.Context, id uint64, from, to identity.Address) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var ownerHex string
	err = tx.QueryRowContext(ctx, `
		SELECT owner FROM coffees WHERE id = $1 FOR UPDATE
	`, id).Scan(&ownerHex)
	if errors.Is(err, sql.ErrNoRows) {
		return coffee.ErrNotFound
	}
	if err != nil {
		return err
	}
	if ownerHex != from.Hex() {
		return coffee.NotOwnerError{Account: from, ItemID: id}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE coffees
		SET owner = $2, owner_seq = nextval('coffee_owner_seq')
		WHERE id = $1
	`, id, to.Hex()); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) RemoveCoffee(ctx context.Context, id uint64) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM coffees WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return coffee.ErrNotFound
	}
	return nil
}

func bigToNumeric(v *big.Int) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: v.String(), Valid: true}
}

func toInt64Array(indices []uint32) pq.Int64Array {
	out := make(pq.Int64Array, 0, len(indices))
	for _, i := range indices {
		out = append(out, int64(i))
	}
	return out
}

func fromInt64Array(arr pq.Int64Array) []uint32 {
	out := make([]uint32, 0, len(arr))
	for _, v := range arr {
		out = append(out, uint32(v))
	}
	return out
}
