// Package costbasis tracks the cost basis of brokerage holdings with FIFO
// tax lots. It ingests raw transaction records, keeps lots and realized gains
// in an auditable, append-mostly ledger, and answers gain queries over it.
//
// The core functionalities include:
//   - Sync: ordered, idempotent and atomic ingestion of raw record pages per
//     account, guarded by a per-account lock and a forward-only cursor.
//   - Normalization: turning loosely typed Coinbase-like records into
//     canonical Transactions, dropping records without a single-asset
//     movement and rejecting malformed ones.
//   - Lot accounting: every buy opens a lot, every sell consumes the oldest
//     open lots first and records exactly one Gain.
//   - Aggregation: unrealized and realized gains, average entry price and
//     positions, scoped by account, broker, asset and time window.
//
// Amounts are exact decimals with 18 fractional digits; no binary floating
// point is used on the ledger path.
//
// This package is the foundational logic for the `cbs` command-line tool and
// its HTTP API.
package costbasis
