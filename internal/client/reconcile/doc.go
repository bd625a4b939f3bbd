// Package reconcile is the client side of notification delivery.
//
// Live pushes are at-most-once, so a client keeps an Inbox that merges two
// feeds. Pushes arrive without a durable id and are held as provisional
// items. Pulls from the notification store are authoritative and replace a
// provisional item once a stored record with the same recipient, entity and
// type is found close enough in time. A Syncer drives the pulls and applies
// read-state changes optimistically, reverting them when the server refuses.
package reconcile
