// Package models defines domain entities and persistence interfaces for the coursex client.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): structs mirroring the backend's JSON
//   - [Course] : Generated course metadata with aggregate completion
//   - [Section] : One ordered unit of course content with a completion [Flag]
//   - [Bundle] : A course paired with its sections, fetched as one unit
//   - [SessionUpdate], [ProtocolError], [StartCreation] : real-time channel payloads
//   - [Analytics] : Dashboard aggregates
//
// 2. Client state and persistent entities
//   - [Session] : The live creation attempt, owned by the session state machine
//   - [Attempt] : Finished attempts recorded in the local SQLite history
//
// Persistent entities implement [Record]; [Store] is the soft-deleting CRUD contract the history repositories satisfy.
package models
