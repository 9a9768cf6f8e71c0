package memory

import (
	"time"

	"salondesk/models"
)

// Demo identifiers seeded by SeedDemoSalon.
const (
	DemoSalonID       = "salon-demo"
	DemoPhoneNumberID = "demo-phone-number-id"
	DemoStaffAsha     = "staff-asha"
	DemoStaffBela     = "staff-bela"
	DemoServiceCut    = "svc-haircut"
	DemoServiceFacial = "svc-facial"
)

// DemoVenue is open Monday to Saturday 09:00-21:00 on a 30 minute grid with no buffer.
func DemoVenue() models.Venue {
	return models.Venue{
		ID:           DemoSalonID,
		Name:         "Glow Studio",
		Phone:        "+919800000000",
		Address:      models.Address{Street: "12 MG Road", City: "Pune", State: "MH", Pincode: "411001"},
		WorkingHours: models.DefaultWorkingHours(),
		SlotDuration: 30,
		BufferTime:   0,
		Payment:      models.PaymentSettings{Mode: models.PaymentOptional, Currency: "inr"},
		WhatsApp:     models.ChannelSettings{PhoneNumberID: DemoPhoneNumberID, AccessToken: "demo-token", IsConnected: true},
		Reminders:    []int{1440, 120},
		IsActive:     true,
	}
}

func allWeekHours(start, end string) []models.StaffHours {
	hours := make([]models.StaffHours, 0, len(models.Weekdays))
	for _, d := range models.Weekdays {
		hours = append(hours, models.StaffHours{Day: d, IsAvailable: true, StartTime: start, EndTime: end})
	}
	return hours
}

// SeedDemoSalon loads one salon with two staff and two services.
// Asha does 30 minute haircuts; Bela does 60 minute facials.
func SeedDemoSalon(d *Directory) {
	d.PutVenue(DemoVenue())
	d.PutService(models.Service{
		ID: DemoServiceCut, SalonID: DemoSalonID, Name: "Haircut", Category: "Hair",
		Duration: 30, Price: 300, IsActive: true,
	})
	d.PutService(models.Service{
		ID: DemoServiceFacial, SalonID: DemoSalonID, Name: "Facial", Category: "Skin",
		Duration: 60, Price: 800, IsActive: true,
	})
	d.PutStaff(models.Staff{
		ID: DemoStaffAsha, SalonID: DemoSalonID, Name: "Asha",
		Services: []string{DemoServiceCut}, WorkingHours: allWeekHours("09:00", "21:00"), IsActive: true,
	})
	d.PutStaff(models.Staff{
		ID: DemoStaffBela, SalonID: DemoSalonID, Name: "Bela",
		Services: []string{DemoServiceFacial}, WorkingHours: allWeekHours("10:00", "18:00"), IsActive: true,
	})
	d.PutOffer(models.Offer{
		ID: "offer-monsoon", SalonID: DemoSalonID, Title: "Monsoon Glow",
		Description: "On all facials", DiscountType: models.DiscountPercentage, DiscountValue: 20,
		ValidFrom: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), ValidTo: time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC),
		IsActive: true,
	})
}
