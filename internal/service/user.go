package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/faucetdb/touchline/internal/database"
	"github.com/faucetdb/touchline/internal/entity"
	"github.com/faucetdb/touchline/internal/fieldmap"
	"github.com/faucetdb/touchline/internal/model"
	"github.com/faucetdb/touchline/internal/query"
)

// Columns of the users table.
const (
	colName       = "user_name"
	colRight      = "user_right"
	colPassword   = "user_password"
	colPhone      = "user_phone"
	colIcon       = "icon"
	colDeleteIcon = "delete_icon"
)

// DefaultRole is given to self-registered users.
const DefaultRole = "user"

// UserService manages accounts: registration, profile edits, secret
// changes and admin maintenance. Operations that confirm a secret before
// mutating run in one transaction with the row locked.
type UserService struct {
	exec   *database.Executor
	users  *entity.Entity
	images *ImageClient
	logger *slog.Logger
}

// NewUserService creates a UserService. images may be nil, which disables
// remote image deletion.
func NewUserService(exec *database.Executor, users *entity.Entity, images *ImageClient, logger *slog.Logger) *UserService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &UserService{exec: exec, users: users, images: images, logger: logger}
}

// Register creates an account and returns it. Untrusted callers cannot
// choose the role; trusted callers (admins, the CLI) can.
func (s *UserService) Register(ctx context.Context, payload fieldmap.Payload, trusted bool) (model.User, error) {
	fields := s.users.InsertFields().Without(colDeleteIcon)
	if !trusted {
		fields = fields.Without(colRight)
	}
	m, err := fieldmap.Map(payload, fields)
	if err != nil {
		return model.User{}, err
	}
	if err := m.Missing(fields); err != nil {
		return model.User{}, err
	}

	bindings, err := hashBindings(m.Bindings())
	if err != nil {
		return model.User{}, err
	}
	if v, ok := m.Value(colRight); !ok || asString(v) == "" {
		bindings = withoutColumn(bindings, colRight)
		bindings = append(bindings, fieldmap.Binding{
			Spec:  s.users.Fields.Lookup(colRight).Spec,
			Value: DefaultRole,
		})
	}

	id, err := insertRecord(ctx, s.exec, s.exec.Dialect(), s.users, bindings)
	if err != nil {
		return model.User{}, err
	}
	s.logger.Info("user registered", "user_id", id)
	return s.Profile(ctx, id)
}

// Profile returns the account keyed id.
func (s *UserService) Profile(ctx context.Context, id int64) (model.User, error) {
	stmt, err := s.selectUsers().Where(s.users.Key, keyParam).SQL()
	if err != nil {
		return model.User{}, err
	}
	records, err := s.exec.Select(ctx, stmt, query.Params{keyParam: id})
	if err != nil {
		return model.User{}, err
	}
	if len(records) == 0 {
		return model.User{}, ErrNotFound
	}
	return s.userFromRecord(records[0]), nil
}

// ChangePassword replaces the secret of id after confirming current.
func (s *UserService) ChangePassword(ctx context.Context, id int64, current, next string) error {
	if next == "" {
		return &fieldmap.ValidationError{Field: "new_password", Reason: "is required"}
	}
	hash, err := HashSecret(next)
	if err != nil {
		return err
	}
	pw := s.users.Fields.Lookup(colPassword).Spec

	return s.exec.InTx(ctx, func(tx *database.Session) error {
		if err := s.confirmLocked(ctx, tx, id, current); err != nil {
			return err
		}
		return updateRecord(ctx, tx, s.exec.Dialect(), s.users, id,
			[]fieldmap.Binding{{Spec: pw, Value: hash}})
	})
}

// DeleteAccount removes id after confirming its secret.
func (s *UserService) DeleteAccount(ctx context.Context, id int64, secret string) error {
	d := s.exec.Dialect()
	stmt, err := query.NewDelete(d.QuoteIdentifier, s.users.Table).Where(s.users.Key, keyParam).SQL()
	if err != nil {
		return err
	}

	err = s.exec.InTx(ctx, func(tx *database.Session) error {
		if err := s.confirmLocked(ctx, tx, id, secret); err != nil {
			return err
		}
		n, err := tx.Exec(ctx, stmt, query.Params{keyParam: id})
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err == nil {
		s.logger.Info("user deleted own account", "user_id", id)
	}
	return err
}

// ChangeAttributes updates the caller's name, phone and icon.
func (s *UserService) ChangeAttributes(ctx context.Context, id int64, payload fieldmap.Payload) (model.User, error) {
	fields := s.users.UpdateFields().Without(colRight, colPassword, colDeleteIcon)
	return s.update(ctx, id, payload, fields)
}

// AdminChangeAttributes updates any attribute of id, including role and
// secret. A new secret is hashed before it is stored.
func (s *UserService) AdminChangeAttributes(ctx context.Context, id int64, payload fieldmap.Payload) (model.User, error) {
	return s.update(ctx, id, payload, s.users.UpdateFields())
}

func (s *UserService) update(ctx context.Context, id int64, payload fieldmap.Payload, fields *fieldmap.Whitelist) (model.User, error) {
	m, err := fieldmap.Map(payload, fields)
	if err != nil {
		return model.User{}, err
	}
	if err := m.NullRequired(); err != nil {
		return model.User{}, err
	}
	bindings, err := hashBindings(m.Bindings())
	if err != nil {
		return model.User{}, err
	}
	if err := updateRecord(ctx, s.exec, s.exec.Dialect(), s.users, id, bindings); err != nil {
		return model.User{}, err
	}
	return s.Profile(ctx, id)
}

// AdminList pages through accounts whose name or phone contains search.
func (s *UserService) AdminList(ctx context.Context, search string, limit, offset int) ([]model.User, int64, error) {
	d := s.exec.Dialect()
	if limit <= 0 || limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	b := s.selectUsers()
	params := query.Params{}
	if search != "" {
		b.Search(s.users.SearchColumns(), searchParam)
		params[searchParam] = "%" + search + "%"
	}
	b.OrderBy(query.OrderClause{Column: s.users.Key, Direction: "ASC"}).Page(limit, offset, d.Paginate)

	stmt, err := b.SQL()
	if err != nil {
		return nil, 0, err
	}
	countStmt, err := b.CountSQL()
	if err != nil {
		return nil, 0, err
	}

	records, err := s.exec.Select(ctx, stmt, params)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.exec.Count(ctx, countStmt, params)
	if err != nil {
		return nil, 0, err
	}

	users := make([]model.User, len(records))
	for i, r := range records {
		users[i] = s.userFromRecord(r)
	}
	return users, total, nil
}

// AdminDelete removes every listed account or none of them: if any id does
// not exist the transaction is rolled back and ErrNotFound returned.
func (s *UserService) AdminDelete(ctx context.Context, ids []int64) (int64, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return 0, &fieldmap.ValidationError{Field: "user_ids", Reason: "is required"}
	}

	names := make([]string, len(ids))
	params := make(query.Params, len(ids))
	for i, id := range ids {
		names[i] = fmt.Sprintf("id%d", i)
		params[names[i]] = id
	}
	d := s.exec.Dialect()
	stmt, err := query.NewDelete(d.QuoteIdentifier, s.users.Table).WhereIn(s.users.Key, names).SQL()
	if err != nil {
		return 0, err
	}

	var deleted int64
	err = s.exec.InTx(ctx, func(tx *database.Session) error {
		n, err := tx.Exec(ctx, stmt, params)
		if err != nil {
			return err
		}
		if n != int64(len(ids)) {
			return ErrNotFound
		}
		deleted = n
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info("users deleted by admin", "count", deleted)
	return deleted, nil
}

// SaveImage stores the icon URL and the URL that deletes it.
func (s *UserService) SaveImage(ctx context.Context, id int64, icon, deleteIcon string) error {
	bindings := []fieldmap.Binding{
		{Spec: s.users.Fields.Lookup(colIcon).Spec, Value: nullIfEmpty(icon)},
		{Spec: s.users.Fields.Lookup(colDeleteIcon).Spec, Value: nullIfEmpty(deleteIcon)},
	}
	return updateRecord(ctx, s.exec, s.exec.Dialect(), s.users, id, bindings)
}

// DeleteImageURL returns the stored delete URL of id's icon, empty if none.
func (s *UserService) DeleteImageURL(ctx context.Context, id int64) (string, error) {
	d := s.exec.Dialect()
	stmt, err := query.NewSelect(d.QuoteIdentifier, s.users.Table).
		Columns(colDeleteIcon).
		Where(s.users.Key, keyParam).
		SQL()
	if err != nil {
		return "", err
	}
	records, err := s.exec.Select(ctx, stmt, query.Params{keyParam: id})
	if err != nil {
		return "", err
	}
	if len(records) == 0 {
		return "", ErrNotFound
	}
	v, _ := records[0].Get(colDeleteIcon)
	return asString(v), nil
}

// DeleteImage deletes id's icon at the image host using the stored delete
// URL, then clears both image columns.
func (s *UserService) DeleteImage(ctx context.Context, id int64) error {
	del, err := s.DeleteImageURL(ctx, id)
	if err != nil {
		return err
	}
	if del == "" {
		return ErrNotFound
	}
	if s.images == nil {
		return ErrImageHost
	}
	if err := s.images.Delete(ctx, del); err != nil {
		return err
	}
	return s.SaveImage(ctx, id, "", "")
}

// confirmLocked reads and locks id's secret inside tx and compares it with
// supplied. A missing user fails exactly like a wrong secret.
func (s *UserService) confirmLocked(ctx context.Context, tx *database.Session, id int64, supplied string) error {
	d := s.exec.Dialect()
	stmt, err := query.NewSelect(d.QuoteIdentifier, s.users.Table).
		Columns(colPassword).
		Where(s.users.Key, keyParam).
		Lock(d.LockSuffix()).
		SQL()
	if err != nil {
		return err
	}
	records, err := tx.Select(ctx, stmt, query.Params{keyParam: id})
	if err != nil {
		return err
	}
	if len(records) == 0 {
		burnCompare(supplied)
		return ErrAuthFailure
	}
	stored, _ := records[0].Get(colPassword)
	if !ConfirmSecret(asString(stored), supplied) {
		return ErrAuthFailure
	}
	return nil
}

func (s *UserService) selectUsers() *query.SelectBuilder {
	d := s.exec.Dialect()
	return query.NewSelect(d.QuoteIdentifier, s.users.Table).
		Columns(s.users.Key, colName, colRight, colPhone, colIcon, colDeleteIcon)
}

func (s *UserService) userFromRecord(r database.Record) model.User {
	get := func(col string) any {
		v, _ := r.Get(col)
		return v
	}
	id, _ := asInt64(get(s.users.Key))
	return model.User{
		ID:         id,
		Name:       asString(get(colName)),
		Right:      asString(get(colRight)),
		Phone:      asString(get(colPhone)),
		Icon:       asString(get(colIcon)),
		DeleteIcon: asString(get(colDeleteIcon)),
	}
}

// hashBindings replaces a plain secret binding with its hash.
func hashBindings(in []fieldmap.Binding) ([]fieldmap.Binding, error) {
	out := make([]fieldmap.Binding, len(in))
	copy(out, in)
	for i, b := range out {
		if !strings.EqualFold(b.Spec.Column, colPassword) {
			continue
		}
		hash, err := HashSecret(asString(b.Value))
		if err != nil {
			return nil, err
		}
		out[i].Value = hash
	}
	return out, nil
}

func withoutColumn(in []fieldmap.Binding, column string) []fieldmap.Binding {
	out := in[:0:0]
	for _, b := range in {
		if !strings.EqualFold(b.Spec.Column, column) {
			out = append(out, b)
		}
	}
	return out
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
