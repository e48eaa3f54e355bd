package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	appErrors "github.com/saf-slovakia/accountancy/customErrors"
	"github.com/saf-slovakia/accountancy/internal/accountancy"
	"github.com/saf-slovakia/accountancy/internal/auth"
	"github.com/saf-slovakia/accountancy/internal/finances"
)

// InMemoryStorage keeps everything in maps guarded by one mutex. Approvals and items are keyed by transaction id,
// so a transaction can never have more than one of each.
type InMemoryStorage struct {
	mu           sync.RWMutex
	users        map[string]auth.User
	sessions     map[string]auth.Session
	accounts     map[string]finances.Account
	types        map[string]finances.TransactionType
	extras       map[string]finances.ExtraExpense
	transactions map[string]accountancy.Transaction
	approvals    map[string]accountancy.Approval
	items        map[string]accountancy.Item
}

func NewInMemoryStorage() *InMemoryStorage {
	return &InMemoryStorage{
		users:        make(map[string]auth.User),
		sessions:     make(map[string]auth.Session),
		accounts:     make(map[string]finances.Account),
		types:        make(map[string]finances.TransactionType),
		extras:       make(map[string]finances.ExtraExpense),
		transactions: make(map[string]accountancy.Transaction),
		approvals:    make(map[string]accountancy.Approval),
		items:        make(map[string]accountancy.Item),
	}
}

func (m *InMemoryStorage) GetStorageType() string {
	return "inmemory"
}

func (m *InMemoryStorage) Ping(ctx context.Context) error {
	return nil
}

func conflict(message string) error {
	return appErrors.ErrorResponse{Code: appErrors.ErrConflict, Message: message}
}

// USERS:

func (m *InMemoryStorage) SaveUser(ctx context.Context, user auth.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.UserName == user.UserName || u.Email == user.Email {
			return conflict("The username or email is already taken.")
		}
	}
	m.users[user.ID] = user
	return nil
}

func (m *InMemoryStorage) IsUserExists(ctx context.Context, username string) (bool, error) {
	_, err := m.GetUserByUserName(ctx, username)
	if err != nil && appErrors.CodeOf(err) != appErrors.ErrNotFound {
		return false, err
	}
	return err == nil, nil
}

func (m *InMemoryStorage) IsEmailTaken(ctx context.Context, email string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *InMemoryStorage) GetUser(ctx context.Context, userID string) (auth.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	user, ok := m.users[userID]
	if !ok {
		return auth.User{}, notFound("User not found.")
	}
	return user, nil
}

func (m *InMemoryStorage) GetUserByUserName(ctx context.Context, username string) (auth.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.UserName == username {
			return u, nil
		}
	}
	return auth.User{}, notFound("User not found.")
}

func (m *InMemoryStorage) SaveSession(ctx context.Context, session auth.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.Token] = session
	return nil
}

func (m *InMemoryStorage) GetSessionByToken(ctx context.Context, token string) (auth.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.sessions[token]
	if !ok {
		return auth.Session{}, appErrors.ErrorResponse{Code: appErrors.ErrAuth, Message: "Session does not exist, please login."}
	}
	return session, nil
}

func (m *InMemoryStorage) UpdateSession(ctx context.Context, token string, expireAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if session, ok := m.sessions[token]; ok {
		session.ExpireAt = expireAt
		m.sessions[token] = session
	}
	return nil
}

func (m *InMemoryStorage) LogoutUser(ctx context.Context, userID string, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[token]
	if !ok || session.UserID != userID {
		return appErrors.ErrorResponse{Code: appErrors.ErrAuth, Message: "Session does not exist, please login."}
	}
	delete(m.sessions, token)
	return nil
}

// FINANCES:

func (m *InMemoryStorage) SaveAccount(ctx context.Context, account finances.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[account.ID]; ok {
		return conflict("The account already exists.")
	}
	m.accounts[account.ID] = account
	return nil
}

func (m *InMemoryStorage) UpdateAccount(ctx context.Context, account finances.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[account.ID]; !ok {
		return notFound("Account not found.")
	}
	m.accounts[account.ID] = account
	return nil
}

func (m *InMemoryStorage) GetAccount(ctx context.Context, id string) (finances.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	account, ok := m.accounts[id]
	if !ok {
		return finances.Account{}, notFound("Account not found.")
	}
	return account, nil
}

func (m *InMemoryStorage) ListAccounts(ctx context.Context, search string) ([]finances.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	search = strings.ToLower(strings.TrimSpace(search))
	accounts := []finances.Account{}
	for _, a := range m.accounts {
		if search != "" && !strings.Contains(strings.ToLower(a.Name), search) && !strings.Contains(strings.ToLower(a.IBAN), search) {
			continue
		}
		accounts = append(accounts, a)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Name < accounts[j].Name })
	return accounts, nil
}

func (m *InMemoryStorage) hasTypeNamed(t finances.TransactionType) bool {
	for _, other := range m.types {
		if other.ID != t.ID && other.Section == t.Section && other.Name == t.Name {
			return true
		}
	}
	return false
}

func (m *InMemoryStorage) SaveTransactionType(ctx context.Context, t finances.TransactionType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hasTypeNamed(t) {
		return conflict("The transaction type already exists in this section.")
	}
	m.types[t.ID] = t
	return nil
}

func (m *InMemoryStorage) UpdateTransactionType(ctx context.Context, t finances.TransactionType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.types[t.ID]; !ok {
		return notFound("Transaction type not found.")
	}
	if m.hasTypeNamed(t) {
		return conflict("The transaction type already exists in this section.")
	}
	m.types[t.ID] = t
	return nil
}

func (m *InMemoryStorage) IsTransactionTypeInUse(ctx context.Context, id string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.approvals {
		if a.TransactionTypeID != nil && *a.TransactionTypeID == id {
			return true, nil
		}
	}
	for _, e := range m.extras {
		if e.TransactionTypeID == id {
			return true, nil
		}
	}
	return false, nil
}

func (m *InMemoryStorage) GetTransactionType(ctx context.Context, id string) (finances.TransactionType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.types[id]
	if !ok {
		return finances.TransactionType{}, notFound("Transaction type not found.")
	}
	return t, nil
}

func (m *InMemoryStorage) ListTransactionTypes(ctx context.Context, filter finances.TypeFilter) ([]finances.TransactionType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	types := []finances.TransactionType{}
	for _, t := range m.types {
		if filter.Section != "" && t.Section != filter.Section {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(t.Name), search) {
			continue
		}
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool {
		if types[i].Section != types[j].Section {
			return types[i].Section < types[j].Section
		}
		return types[i].Name < types[j].Name
	})
	return types, nil
}

func (m *InMemoryStorage) SaveExtraExpense(ctx context.Context, e finances.ExtraExpense) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.types[e.TransactionTypeID]; !ok {
		return notFound("Transaction type not found.")
	}
	m.extras[e.ID] = e
	return nil
}

func (m *InMemoryStorage) UpdateExtraExpense(ctx context.Context, e finances.ExtraExpense) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.extras[e.ID]; !ok {
		return notFound("Extra expense not found.")
	}
	if _, ok := m.types[e.TransactionTypeID]; !ok {
		return notFound("Transaction type not found.")
	}
	m.extras[e.ID] = e
	return nil
}

func (m *InMemoryStorage) GetExtraExpense(ctx context.Context, id string) (finances.ExtraExpense, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.extras[id]
	if !ok {
		return finances.ExtraExpense{}, notFound("Extra expense not found.")
	}
	e.TransactionType = m.types[e.TransactionTypeID].Name
	return e, nil
}

func (m *InMemoryStorage) ListExtraExpenses(ctx context.Context, filter finances.ExtraExpenseFilter) ([]finances.ExtraExpense, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	extras := []finances.ExtraExpense{}
	for _, e := range m.extras {
		if filter.Section != "" && e.Section != filter.Section {
			continue
		}
		if filter.State != "" && e.State != filter.State {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(e.Purpose), search) && !strings.Contains(e.Amount.StringFixed(2), search) {
			continue
		}
		e.TransactionType = m.types[e.TransactionTypeID].Name
		extras = append(extras, e)
	}
	sort.Slice(extras, func(i, j int) bool {
		if extras[i].Section != extras[j].Section {
			return extras[i].Section < extras[j].Section
		}
		if extras[i].TransactionType != extras[j].TransactionType {
			return extras[i].TransactionType < extras[j].TransactionType
		}
		return extras[i].ID < extras[j].ID
	})
	return extras, nil
}

func (m *InMemoryStorage) ListApprovedAmounts(ctx context.Context) ([]finances.ApprovedAmount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []finances.ApprovedAmount
	for transactionID, a := range m.approvals {
		if a.TransactionTypeID == nil {
			continue
		}
		t := m.transactions[transactionID]
		result = append(result, finances.ApprovedAmount{
			TransactionTypeID: *a.TransactionTypeID,
			TransactionState:  t.State,
			Amount:            t.Amount,
		})
	}
	return result, nil
}

// TRANSACTIONS:

func (m *InMemoryStorage) SaveTransaction(ctx context.Context, t accountancy.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.transactions[t.ID]; ok {
		return conflict("The transaction already exists.")
	}
	m.transactions[t.ID] = t
	return nil
}

func (m *InMemoryStorage) UpdateTransaction(ctx context.Context, t accountancy.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.transactions[t.ID]
	if !ok {
		return notFound("Transaction not found.")
	}
	t.CreatedBy = existing.CreatedBy
	t.DateCreated = existing.DateCreated
	m.transactions[t.ID] = t
	return nil
}

func (m *InMemoryStorage) SetTransactionState(ctx context.Context, transactionID string, state string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transactions[transactionID]
	if !ok {
		return notFound("Transaction not found.")
	}
	t.State = state
	m.transactions[transactionID] = t
	return nil
}

func (m *InMemoryStorage) record(t accountancy.Transaction) accountancy.Record {
	record := accountancy.Record{Transaction: t}
	if user, ok := m.users[t.CreatedBy]; ok {
		record.RequesterName = user.FullName
		record.RequesterEmail = user.Email
	}
	if a, ok := m.approvals[t.ID]; ok {
		record.Approval = &a
		if a.TransactionTypeID != nil {
			record.TransactionTypeName = m.types[*a.TransactionTypeID].Name
		}
	}
	if item, ok := m.items[t.ID]; ok {
		record.Item = &item
		if item.AccountID != nil {
			record.AccountName = m.accounts[*item.AccountID].Name
		}
	}
	return record
}

func (m *InMemoryStorage) GetRecord(ctx context.Context, transactionID string) (accountancy.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.transactions[transactionID]
	if !ok {
		return accountancy.Record{}, notFound("Transaction not found.")
	}
	return m.record(t), nil
}

func matchRecord(r accountancy.Record, filter accountancy.RecordFilter) bool {
	if len(filter.States) > 0 {
		found := false
		for _, state := range filter.States {
			if r.State == state {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.Section != "" && r.Section != filter.Section {
		return false
	}
	if filter.TransactionTypeID != "" && (r.Approval == nil || r.Approval.TransactionTypeID == nil || *r.Approval.TransactionTypeID != filter.TransactionTypeID) {
		return false
	}
	if filter.AccountID != "" && (r.Item == nil || r.Item.AccountID == nil || *r.Item.AccountID != filter.AccountID) {
		return false
	}
	if filter.CreatedBy != "" && r.CreatedBy != filter.CreatedBy {
		return false
	}
	if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
		if !strings.Contains(strings.ToLower(r.Description), search) && !strings.Contains(r.Amount.StringFixed(2), search) {
			return false
		}
	}
	if filter.WithApproval && r.Approval == nil {
		return false
	}
	if filter.WithItem && r.Item == nil {
		return false
	}
	if filter.PayedBefore != nil && (r.Item == nil || r.Item.DatePayed == nil || !r.Item.DatePayed.Before(*filter.PayedBefore)) {
		return false
	}
	return true
}

func datePayed(r accountancy.Record) time.Time {
	if r.Item == nil || r.Item.DatePayed == nil {
		return time.Time{}
	}
	return *r.Item.DatePayed
}

func sortRecords(records []accountancy.Record, ordering string) {
	if ordering == "" {
		ordering = "-date_created"
	}
	desc := strings.HasPrefix(ordering, "-")
	field := strings.TrimPrefix(ordering, "-")

	less := func(a, b accountancy.Record) int {
		switch field {
		case "amount":
			return a.Amount.Cmp(b.Amount)
		case "date_payed":
			return datePayed(a).Compare(datePayed(b))
		case "id":
			return strings.Compare(a.ID, b.ID)
		default:
			return a.DateCreated.Compare(b.DateCreated)
		}
	}
	sort.SliceStable(records, func(i, j int) bool {
		c := less(records[i], records[j])
		if c == 0 {
			c = strings.Compare(records[i].ID, records[j].ID)
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
}

func (m *InMemoryStorage) ListRecords(ctx context.Context, filter accountancy.RecordFilter) ([]accountancy.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := []accountancy.Record{}
	for _, t := range m.transactions {
		r := m.record(t)
		if matchRecord(r, filter) {
			records = append(records, r)
		}
	}
	sortRecords(records, filter.Ordering)

	if filter.Offset > 0 {
		if filter.Offset >= len(records) {
			return []accountancy.Record{}, nil
		}
		records = records[filter.Offset:]
	}
	if filter.Limit > 0 && len(records) > filter.Limit {
		records = records[:filter.Limit]
	}
	return records, nil
}

func (m *InMemoryStorage) SaveApproval(ctx context.Context, a accountancy.Approval) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.transactions[a.TransactionID]; !ok {
		return notFound("Transaction not found.")
	}
	if _, ok := m.approvals[a.TransactionID]; ok {
		return conflict("Approval of this transaction was already requested.")
	}
	m.approvals[a.TransactionID] = a
	return nil
}

func (m *InMemoryStorage) UpdateApproval(ctx context.Context, a accountancy.Approval) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.approvals[a.TransactionID]; !ok {
		return notFound("Approval not found.")
	}
	m.approvals[a.TransactionID] = a
	return nil
}

func (m *InMemoryStorage) ApproveTransaction(ctx context.Context, a accountancy.Approval, item accountancy.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transactions[a.TransactionID]
	if !ok {
		return notFound("Transaction not found.")
	}
	if _, ok := m.items[a.TransactionID]; ok {
		return conflict("The transaction is already approved.")
	}
	t.State = accountancy.StateApproved
	m.transactions[t.ID] = t
	m.approvals[t.ID] = a
	m.items[t.ID] = item
	return nil
}

func (m *InMemoryStorage) ReturnToApproval(ctx context.Context, transactionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transactions[transactionID]
	if !ok {
		return notFound("Transaction not found.")
	}
	delete(m.items, transactionID)
	t.State = accountancy.StateCreated
	m.transactions[transactionID] = t
	return nil
}

func (m *InMemoryStorage) ResubmitTransaction(ctx context.Context, t accountancy.Transaction, clearType bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.transactions[t.ID]
	if !ok {
		return notFound("Transaction not found.")
	}
	delete(m.items, t.ID)
	if a, ok := m.approvals[t.ID]; ok && clearType {
		a.TransactionTypeID = nil
		m.approvals[t.ID] = a
	}
	t.CreatedBy = existing.CreatedBy
	t.DateCreated = existing.DateCreated
	m.transactions[t.ID] = t
	return nil
}

func (m *InMemoryStorage) CompletePayment(ctx context.Context, item accountancy.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transactions[item.TransactionID]
	if !ok {
		return notFound("Transaction not found.")
	}
	if _, ok := m.items[item.TransactionID]; !ok {
		return notFound("Item not found.")
	}
	t.State = accountancy.StatePublic
	m.transactions[t.ID] = t
	m.items[t.ID] = item
	return nil
}

func (m *InMemoryStorage) UpdateItem(ctx context.Context, item accountancy.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[item.TransactionID]; !ok {
		return notFound("Item not found.")
	}
	if item.AccountID != nil {
		if _, ok := m.accounts[*item.AccountID]; !ok {
			return notFound("Account not found.")
		}
	}
	m.items[item.TransactionID] = item
	return nil
}

func (m *InMemoryStorage) ArchivePaid(ctx context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for id, t := range m.transactions {
		if t.State != accountancy.StatePayed && t.State != accountancy.StatePublic {
			continue
		}
		item, ok := m.items[id]
		if !ok || item.DatePayed == nil || !item.DatePayed.Before(before) {
			continue
		}
		t.State = accountancy.StateOld
		m.transactions[id] = t
		count++
	}
	return count, nil
}
