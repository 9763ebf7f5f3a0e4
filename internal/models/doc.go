// Package models defines the core domain models for splitfriends.
//
// # Models
//
//   - User: a registered account with a username and a friend list
//   - UserSummary: the public view of a User (no credentials, no friends)
//   - Expense: an amount paid by one user and split equally with friends
//
// # Design Principles
//
//  1. **Integer money**: amounts are stored in cents; the API layer converts
//     to and from decimal strings.
//  2. **Avoid circular references**: relationships use ID strings.
//  3. **Denormalized payer name**: an Expense carries the payer's username
//     as it was when the expense was recorded.
//
// # Relationships
//
// An Expense references one payer and one or more other participants.
// A User's friend list is one-directional: Alice adding Bob does not add
// Alice to Bob's list.
package models
