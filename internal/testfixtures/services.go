package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/studentstay/internal/application"
)

// ServiceFactory builds application services wired to a shared test clock and
// deterministic identifier sequences.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Tokens      *IDGenerator
	Logger      *slog.Logger
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
		Tokens:      NewIDGenerator("token"),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	if factory.Tokens == nil {
		factory.Tokens = NewIDGenerator("token")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the record identifier sequence.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// WithLogger routes service logs to logger instead of slog.Default.
func WithLogger(logger *slog.Logger) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Logger = logger
	}
}

// AuthServiceDeps captures dependencies for constructing an auth service.
type AuthServiceDeps struct {
	Credentials application.CredentialStore
	Sessions    application.SessionRepository
	Options     application.AuthOptions
	Recorder    application.Recorder
}

// NewAuthService builds an auth service whose session tokens come from the
// factory's token sequence.
func (f *ServiceFactory) NewAuthService(deps AuthServiceDeps) *application.AuthService {
	return application.NewAuthServiceWithLogger(
		deps.Credentials,
		deps.Sessions,
		nil,
		f.IDGenerator.NextFunc(),
		f.Tokens.NextFunc(),
		f.Clock.NowFunc(),
		deps.Options,
		f.Logger,
	).WithRecorder(deps.Recorder)
}

// BookingServiceDeps captures dependencies for constructing a booking service.
type BookingServiceDeps struct {
	Rooms    application.RoomCatalog
	Bookings application.BookingRepository
	Location *time.Location
	Recorder application.Recorder
}

// NewBookingService builds a booking service using the factory clock and ids.
func (f *ServiceFactory) NewBookingService(deps BookingServiceDeps) *application.BookingService {
	return application.NewBookingServiceWithLogger(
		deps.Rooms,
		deps.Bookings,
		f.IDGenerator.NextFunc(),
		f.Clock.NowFunc(),
		deps.Location,
		f.Logger,
	).WithRecorder(deps.Recorder)
}

// NewUserService builds a user service using the factory clock and ids.
func (f *ServiceFactory) NewUserService(users application.UserRepository) *application.UserService {
	return application.NewUserServiceWithLogger(users, f.IDGenerator.NextFunc(), f.Clock.NowFunc(), f.Logger)
}

// NewCatalogService builds a catalog service using the factory clock and ids.
func (f *ServiceFactory) NewCatalogService(catalog application.CatalogRepository, users application.UserDirectory) *application.CatalogService {
	return application.NewCatalogServiceWithLogger(catalog, users, f.IDGenerator.NextFunc(), f.Clock.NowFunc(), f.Logger)
}
