// Package repositories persists conversion analytics.
//
// Three sinks satisfy the same counter contract and are selected by the analytics driver:
//   - [SQLiteAnalytics] : a single counter row plus a per-request [ConversionRepository] log
//   - [MongoAnalytics] : $inc updates applied to every document of a collection
//   - [RedisAnalytics] : HINCRBY on the fields of one hash
//
// Every sink stores the same four counters, named as in [models.Analytics].
package repositories
