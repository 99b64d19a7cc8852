// Package mocks provides test doubles for ports interfaces.
//
// These mocks are designed to be simple, thread-safe, in-memory implementations
// suitable for unit testing. Each mock provides:
//
//   - Default behavior that mirrors the production semantics closely enough for tests
//   - Callback functions (xxxFn) for customizing behavior per test
//   - Recorded calls for call-count assertions
//
// # Usage Example
//
//	func TestDispatcher(t *testing.T) {
//		repo := mocks.NewRepository()
//		messenger := mocks.NewMessenger()
//		messenger.SetMember(chatID, userID, domain.MemberStatus{Status: domain.MemberStatusAdministrator})
//
//		d := bot.NewDispatcher(cfg, mocks.StaticProvider(repo), messenger, completer, &logger)
//		// ... assert on messenger.Sent()
//	}
//
// # Available Mocks
//
//   - Repository: implements ports.Repository
//   - Provider: implements ports.RepositoryProvider
//   - Messenger: implements ports.Messenger and ports.WebhookRegistrar
package mocks
