package costbasis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SyncReport summarizes one account sync batch.
type SyncReport struct {
	RunID      string    `json:"run_id"`
	AccountID  string    `json:"account_id"`
	Broker     Broker    `json:"broker"`
	Ingested   int       `json:"ingested"`
	Duplicates int       `json:"duplicates"`
	Dropped    int       `json:"dropped"`
	Rejected   int       `json:"rejected"`
	Cursor     time.Time `json:"cursor"`   // the account cursor after the batch
	Advanced   bool      `json:"advanced"` // whether the batch moved the cursor
}

// Account is one brokerage account as listed by a Feed.
type Account struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Currency string   `json:"currency"`
	Balance  Quantity `json:"balance"`
}

// Feed is a source of raw brokerage records.
type Feed interface {
	Broker() Broker
	Accounts(ctx context.Context) ([]Account, error)
	// Records returns the raw records of an account created after since. A
	// zero since asks for the whole history. Feeds may return older records
	// too: Sync filters them.
	Records(ctx context.Context, accountID string, since time.Time) ([]Record, error)
}

// Cursor returns the sync cursor of an account; found is false when the
// account was never synced.
func (l *Ledger) Cursor(ctx context.Context, accountID string) (c SyncCursor, found bool, err error) {
	err = l.store.View(ctx, func(r Reader) error {
		c, found, err = r.Cursor(ctx, accountID)
		return err
	})
	return c, found, err
}

// pending is a raw record that survived the cursor filter.
type pending struct {
	rec Record
	id  string
	at  time.Time
}

// Sync ingests one page of raw records for an account as a single atomic
// batch.
//
// Records not newer than the account cursor are ignored. The others are
// applied oldest first: buys open lots, sells consume them FIFO and record a
// gain. Already recorded transactions are skipped, malformed records are
// rejected and records without a single-asset movement are dropped, all
// without failing the batch. Any other failure, including a sell that the
// open lots cannot cover, rolls the whole batch back and leaves the cursor
// where it was.
func (l *Ledger) Sync(ctx context.Context, accountID string, broker Broker, page []Record) (SyncReport, error) {
	report := SyncReport{RunID: uuid.NewString(), AccountID: accountID, Broker: broker}
	if accountID == "" {
		return report, errors.New("sync: account id is required")
	}
	if broker == NoBroker {
		return report, errors.New("sync: broker is required")
	}
	log := l.log.With().Str("run_id", report.RunID).Str("account_id", accountID).Str("broker", broker.String()).Logger()

	release, err := l.locker.TryLock(ctx, accountID)
	if err != nil {
		log.Warn().Err(err).Msg("account is locked")
		return report, err
	}
	defer func() {
		if err := release(); err != nil {
			log.Error().Err(err).Msg("cannot release account lock")
		}
	}()

	start := time.Now()
	var (
		committed SyncReport
		realized  []string // asset of every recorded gain
	)
	err = l.store.Update(ctx, func(w Writer) error {
		// counts restart from zero whenever the store retries fn
		r := report
		var gains []string
		if err := l.syncBatch(ctx, w, log, &r, &gains, page); err != nil {
			return err
		}
		committed, realized = r, gains
		return nil
	})
	l.metrics.ObserveSync(broker.String(), time.Since(start), err)
	if err != nil {
		log.Error().Err(err).Msg("sync rolled back")
		return report, err
	}

	l.metrics.CountRecords("ingested", committed.Ingested)
	l.metrics.CountRecords("duplicate", committed.Duplicates)
	l.metrics.CountRecords("dropped", committed.Dropped)
	l.metrics.CountRecords("rejected", committed.Rejected)
	for _, asset := range realized {
		l.metrics.CountGain(asset)
	}
	log.Info().
		Int("ingested", committed.Ingested).
		Int("duplicates", committed.Duplicates).
		Int("dropped", committed.Dropped).
		Int("rejected", committed.Rejected).
		Time("cursor", committed.Cursor).
		Msg("sync committed")
	return committed, nil
}

func (l *Ledger) syncBatch(ctx context.Context, w Writer, log zerolog.Logger, r *SyncReport, gains *[]string, page []Record) error {
	if err := w.LockAccount(ctx, r.AccountID); err != nil {
		return err
	}
	cursor, found, err := w.Cursor(ctx, r.AccountID)
	if err != nil {
		return fmt.Errorf("cannot load cursor: %w", err)
	}
	r.Cursor = cursor.LastSyncedTime

	batch := make([]pending, 0, len(page))
	for _, rec := range page {
		at, err := rec.CreatedAt()
		if err != nil {
			r.Rejected++
			log.Warn().Err(&ValidationError{TxID: rec.ID(), Field: "created_at", Reason: "not an RFC 3339 time", Err: err}).Msg("record rejected")
			continue
		}
		if found && !at.After(cursor.LastSyncedTime) {
			continue
		}
		batch = append(batch, pending{rec: rec, id: rec.ID(), at: at})
	}
	sort.SliceStable(batch, func(i, j int) bool {
		if !batch[i].at.Equal(batch[j].at) {
			return batch[i].at.Before(batch[j].at)
		}
		return batch[i].id < batch[j].id
	})

	var latest time.Time
	for _, p := range batch {
		if p.at.After(latest) {
			latest = p.at
		}
		tx, ok, err := Normalize(p.rec, r.Broker)
		if err == nil && ok {
			err = l.claim(&tx, r.AccountID)
		}
		var invalid *ValidationError
		switch {
		case errors.As(err, &invalid):
			r.Rejected++
			log.Warn().Err(err).Str("tx_id", p.id).Msg("record rejected")
			continue
		case err != nil:
			return err
		case !ok:
			r.Dropped++
			log.Debug().Str("tx_id", p.id).Msg("record dropped")
			continue
		}

		gain, err := l.apply(ctx, w, tx)
		switch {
		case errors.Is(err, ErrDuplicateTransaction):
			r.Duplicates++
			log.Debug().Str("tx_id", tx.TxID).Msg("transaction already recorded")
		case err != nil:
			return fmt.Errorf("cannot apply %s %s: %w", tx.Type, tx.TxID, err)
		default:
			r.Ingested++
			if gain != nil {
				*gains = append(*gains, gain.Asset)
			}
		}
	}

	if latest.IsZero() {
		return nil
	}
	if err := w.PutCursor(ctx, SyncCursor{AccountID: r.AccountID, LastSyncedTime: latest}); err != nil {
		return fmt.Errorf("cannot advance cursor: %w", err)
	}
	r.Cursor = latest
	r.Advanced = true
	return nil
}

// claim binds tx to the account being synced and checks it is recordable.
func (l *Ledger) claim(tx *Transaction, accountID string) error {
	if tx.AccountID == "" {
		tx.AccountID = accountID
	}
	if tx.AccountID != accountID {
		return &ValidationError{TxID: tx.TxID, Field: "account_id",
			Reason: fmt.Sprintf("belongs to %s, not %s", tx.AccountID, accountID)}
	}
	if err := tx.Validate(); err != nil {
		return &ValidationError{TxID: tx.TxID, Field: "transaction", Reason: "invalid", Err: err}
	}
	return nil
}

// apply records one transaction and its effect on the lots. It returns the
// gain recorded for a sell, nil for a buy.
func (l *Ledger) apply(ctx context.Context, w Writer, tx Transaction) (*Gain, error) {
	if err := w.InsertTransaction(ctx, tx); err != nil {
		return nil, err
	}
	if tx.Type == Buy {
		_, err := w.InsertLot(ctx, OpenLot(tx))
		return nil, err
	}

	open, err := w.Lots(ctx, LotQuery{AccountID: tx.AccountID, Asset: tx.Asset, OpenOnly: true})
	if err != nil {
		return nil, err
	}
	m, err := MatchSell(open, tx)
	if err != nil {
		return nil, err
	}
	for _, lot := range m.Lots {
		if err := w.UpdateLot(ctx, lot); err != nil {
			return nil, err
		}
	}
	g, err := w.InsertGain(ctx, RecordGain(tx, m))
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// SyncAll syncs every account of a feed, each as its own batch, starting
// from the account cursors. A failing account does not stop the others: the
// reports of the committed accounts are returned with the joined failures.
func (l *Ledger) SyncAll(ctx context.Context, feed Feed) ([]SyncReport, error) {
	accounts, err := feed.Accounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("cannot list accounts: %w", err)
	}
	reports := make([]SyncReport, 0, len(accounts))
	var errs error
	for _, acct := range accounts {
		report, err := l.syncAccount(ctx, feed, acct.ID)
		if err != nil {
			errs = errors.Join(errs, fmt.Errorf("account %s: %w", acct.ID, err))
			continue
		}
		reports = append(reports, report)
	}
	return reports, errs
}

func (l *Ledger) syncAccount(ctx context.Context, feed Feed, accountID string) (SyncReport, error) {
	cursor, _, err := l.Cursor(ctx, accountID)
	if err != nil {
		return SyncReport{}, err
	}
	records, err := feed.Records(ctx, accountID, cursor.LastSyncedTime)
	if err != nil {
		return SyncReport{}, fmt.Errorf("cannot fetch records: %w", err)
	}
	return l.Sync(ctx, accountID, feed.Broker(), records)
}
