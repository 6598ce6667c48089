// Package store keeps the latest check result of every endpoint in memory
// and publishes changes to subscribers.
//
// The store backs the read-only status API. It is rebuilt from scratch on
// every start: the durable failing/healthy state lives in the error marker
// files, not here.
package store
