// Package services implements the HTTP side of the course backend.
//
// # Course Data
//
// [CourseService] is the read and mutate path for generated courses:
//
//   - [CourseService.FetchCourseBundle] loads a course and its ordered sections as one unit
//   - [CourseService.MarkSectionComplete] and [CourseService.DeleteCourse] are the two mutations
//   - [CourseService.ListCourses] and [CourseService.FetchAnalytics] back the list and dashboard screens
//
// Requests go through a [rate.Limiter] and, when a token is configured, an oauth2 static
// token source (see [NewHTTPClient]).
//
// # Error Handling
//
// Reads fail with [*FetchError] and writes with [*MutationError]. Both wrap the matching
// sentinel so callers can branch with errors.Is:
//   - [shared.ErrFetch] : the course or its sections could not be loaded
//   - [shared.ErrMutation] : a completion or deletion was refused or failed
//
// When the server explains a failure with a message, error or detail field, the text is kept on
// the error and [ServerMessage] retrieves it.
//
// # Raw Access
//
// [APIService] issues arbitrary GET, POST and DELETE requests for debugging.
package services
