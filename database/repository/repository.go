package repository

import (
	appointmentRepo "salondesk/database/repository/appointment"
	conversationRepo "salondesk/database/repository/conversation"
	customerRepo "salondesk/database/repository/customer"
	directoryRepo "salondesk/database/repository/directory"
	lockRepo "salondesk/database/repository/lock"
	"salondesk/database/repository/memory"
	messageLogRepo "salondesk/database/repository/messagelog"

	"go.mongodb.org/mongo-driver/mongo"
)

// Re-export the repository interfaces.
type (
	DirectoryRepository    = directoryRepo.DirectoryRepository
	AppointmentRepository  = appointmentRepo.AppointmentRepository
	CustomerRepository     = customerRepo.CustomerRepository
	ConversationRepository = conversationRepo.ConversationRepository
	MessageLogRepository   = messageLogRepo.MessageLogRepository
)

// Repositories bundles every store the services need.
type Repositories struct {
	Directory     DirectoryRepository
	Appointments  AppointmentRepository
	Customers     CustomerRepository
	Conversations ConversationRepository
	MessageLogs   MessageLogRepository
	SlotLocks     lockRepo.Locker
}

// NewMongoRepositories wires the MongoDB implementations against db.
func NewMongoRepositories(db *mongo.Database) *Repositories {
	return &Repositories{
		Directory:     directoryRepo.NewMongoDirectoryRepo(db),
		Appointments:  appointmentRepo.NewMongoAppointmentRepo(db),
		Customers:     customerRepo.NewMongoCustomerRepo(db),
		Conversations: conversationRepo.NewMongoConversationRepo(db),
		MessageLogs:   messageLogRepo.NewMongoMessageLogRepo(db),
		SlotLocks:     lockRepo.NewMongoLocker(db),
	}
}

// NewMemoryRepositories wires process-local stores. The directory is returned
// separately so callers can seed it.
func NewMemoryRepositories() (*Repositories, *memory.Directory) {
	dir := memory.NewDirectory()
	return &Repositories{
		Directory:     dir,
		Appointments:  memory.NewAppointments(),
		Customers:     memory.NewCustomers(),
		Conversations: memory.NewConversations(),
		MessageLogs:   memory.NewMessageLogs(),
		SlotLocks:     lockRepo.NewLocalLocker(),
	}, dir
}
