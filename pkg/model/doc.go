// Package model defines the durable records of quizdesk.
//
// # Core Models
//
//   - Record: a user account, keyed by the persistent id and looked up by
//     normalized username or by the last ephemeral credential id
//   - Role: the access role stored on a record (admin or student)
//
// # Database Schema
//
// Records live in the users table (see pkg/db/migrations). The username
// column is unique among active rows only; deactivated records keep their
// username so it can be reclaimed by a new account.
package model
