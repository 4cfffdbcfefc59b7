package postgres

import (
	"fmt"
	"strings"
	"time"

	"github.com/fleetops/backend/internal/domain"
)

// SeedDataset builds the demo fleet relative to now: three sites, twelve
// machines, a few months of rentals and service history, one idle machine
// that stands out in usage, and an overdue rental with no engine hours
func SeedDataset(now time.Time) domain.Dataset {
	day := func(offset int) time.Time {
		return time.Date(now.Year(), now.Month(), now.Day(), 8, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
	}
	hours := func(v float64) *float64 { return &v }
	at := func(t time.Time) *time.Time { return &t }

	sites := []domain.Site{
		{ID: "SITE-N", Name: "North Interchange", Address: "Ring Road km 12", Coordinates: domain.GeoLocation{Lat: 43.2851, Lng: 76.8950}, ProjectManager: "A. Serik"},
		{ID: "SITE-C", Name: "Central Tower", Address: "Abai Ave 44", Coordinates: domain.GeoLocation{Lat: 43.2389, Lng: 76.8897}, ProjectManager: "D. Omarova"},
		{ID: "SITE-S", Name: "South Quarry", Address: "Quarry Rd 3", Coordinates: domain.GeoLocation{Lat: 43.0700, Lng: 76.9500}, ProjectManager: "M. Lee"},
	}

	type machine struct {
		id, kind, model string
		status          domain.EquipmentStatus
		site            string
		engineHours     float64
		capacity        float64
		rate            float64
	}
	machines := []machine{
		{"EXC-001", "Excavator", "CAT 320", domain.EquipmentRented, "SITE-N", 4200, 20, 95},
		{"EXC-002", "Excavator", "Komatsu PC210", domain.EquipmentAvailable, "SITE-N", 2100, 21, 90},
		{"EXC-003", "Excavator", "Volvo EC220", domain.EquipmentMaintenance, "SITE-S", 7800, 22, 92},
		{"CRN-001", "Crane", "Liebherr LTM 1100", domain.EquipmentRented, "SITE-C", 3100, 100, 180},
		{"CRN-002", "Crane", "Tadano GR-1000", domain.EquipmentAvailable, "SITE-C", 1500, 90, 170},
		{"BLD-001", "Bulldozer", "CAT D6", domain.EquipmentRented, "SITE-S", 5600, 18, 110},
		{"BLD-002", "Bulldozer", "Komatsu D61", domain.EquipmentAvailable, "SITE-N", 900, 17, 105},
		{"LDR-001", "Loader", "Volvo L90", domain.EquipmentAvailable, "SITE-C", 2600, 5, 70},
		{"LDR-002", "Loader", "CAT 950", domain.EquipmentRented, "SITE-S", 3300, 6, 75},
		{"GRD-001", "Grader", "CAT 140", domain.EquipmentAvailable, "SITE-S", 4100, 4, 80},
		{"TRK-001", "Dump Truck", "Volvo A40", domain.EquipmentOverdue, "SITE-N", 6100, 40, 85},
		{"FRK-001", "Forklift", "Toyota 8FD", domain.EquipmentAvailable, "SITE-C", 1200, 3, 35},
	}

	equipment := make([]domain.Equipment, 0, len(machines))
	for i, m := range machines {
		site := sites[0]
		for _, s := range sites {
			if s.ID == m.site {
				site = s
			}
		}
		equipment = append(equipment, domain.Equipment{
			ID:           m.id,
			Type:         m.kind,
			Model:        m.model,
			SerialNumber: fmt.Sprintf("SN-%05d", 10000+i*137),
			Manufacturer: strings.Fields(m.model)[0],
			Year:         now.Year() - int(m.engineHours/2000),
			Status:       m.status,
			Location:     site.Coordinates,
			Specifications: domain.Specifications{
				EngineHours: m.engineHours,
				Capacity:    m.capacity,
			},
			HourlyRate: m.rate,
			SiteID:     m.site,
		})
	}

	projects := []domain.Project{
		{ID: "PRJ-001", Name: "Interchange earthworks", Type: "excavation", SiteID: "SITE-N", StartDate: day(3), Duration: 45, Budget: 250000, RequiredCapacity: 20, Priority: 1},
		{ID: "PRJ-002", Name: "Tower core lift", Type: "Crane", SiteID: "SITE-C", StartDate: day(7), Duration: 30, Budget: 180000, RequiredCapacity: 100, Priority: 2},
		{ID: "PRJ-003", Name: "Quarry access road", Type: "grading", SiteID: "SITE-S", StartDate: day(14), Duration: 20, Budget: 60000, RequiredCapacity: 5, Priority: 3},
	}

	type cycle struct {
		equipment, site, project string
		out, planned, in         int // day offsets, in == 0 means still out
		start, end               float64
		fuel                     float64
		status                   domain.RentalStatus
		cost                     float64
	}
	cycles := []cycle{
		{"EXC-001", "SITE-N", "PRJ-001", -120, -100, -99, 3500, 3660, 520, domain.RentalCompleted, 14000},
		{"EXC-001", "SITE-N", "PRJ-001", -60, -40, -40, 3900, 4050, 480, domain.RentalCompleted, 13500},
		{"EXC-001", "SITE-N", "PRJ-001", -14, 10, 0, 4150, 4200, 160, domain.RentalActive, 0},
		{"EXC-002", "SITE-N", "", -90, -75, -76, 1900, 2020, 390, domain.RentalCompleted, 10200},
		{"EXC-003", "SITE-S", "PRJ-003", -150, -120, -115, 7300, 7600, 1100, domain.RentalCompleted, 26000},
		{"CRN-001", "SITE-C", "PRJ-002", -200, -170, -170, 2700, 2850, 600, domain.RentalCompleted, 45000},
		{"CRN-001", "SITE-C", "PRJ-002", -30, 5, 0, 2950, 3100, 410, domain.RentalActive, 0},
		{"CRN-002", "SITE-C", "", -80, -70, -69, 1400, 1460, 150, domain.RentalCompleted, 9800},
		{"BLD-001", "SITE-S", "PRJ-003", -100, -80, -78, 5100, 5320, 900, domain.RentalCompleted, 19000},
		{"BLD-001", "SITE-S", "PRJ-003", -20, 15, 0, 5400, 5600, 700, domain.RentalActive, 0},
		{"BLD-002", "SITE-N", "", -45, -35, -35, 820, 900, 260, domain.RentalCompleted, 8400},
		{"LDR-001", "SITE-C", "", -50, -40, -41, 2400, 2600, 500, domain.RentalCompleted, 5600},
		{"LDR-002", "SITE-S", "PRJ-003", -10, 20, 0, 3250, 3300, 130, domain.RentalActive, 0},
		{"GRD-001", "SITE-S", "PRJ-003", -70, -60, -60, 3900, 4100, 640, domain.RentalCompleted, 6400},
		{"TRK-001", "SITE-N", "PRJ-001", -25, -5, 0, 6100, 6100, 0, domain.RentalActive, 0},
		{"FRK-001", "SITE-C", "", -40, -30, -22, 1150, 1200, 90, domain.RentalCompleted, 2800},
		{"CRN-002", "SITE-C", "", -300, -280, -281, 1200, 1400, 520, domain.RentalCancelled, 0},
	}

	rentals := make([]domain.Rental, 0, len(cycles))
	for i, c := range cycles {
		r := domain.Rental{
			ID:                fmt.Sprintf("RNT-%03d", i+1),
			EquipmentID:       c.equipment,
			OperatorID:        fmt.Sprintf("OP-%02d", i%5+1),
			SiteID:            c.site,
			ProjectID:         c.project,
			CheckOutDate:      day(c.out),
			PlannedReturnDate: day(c.planned),
			EngineHoursStart:  c.start,
			FuelUsage:         c.fuel,
			Status:            c.status,
			TotalCost:         c.cost,
		}
		if c.in != 0 {
			r.CheckInDate = at(day(c.in))
			r.EngineHoursEnd = hours(c.end)
			r.Duration = float64(c.in - c.out)
			r.OperatingDays = c.in - c.out
		} else if c.end > c.start {
			r.EngineHoursEnd = hours(c.end)
		}
		if r.Duration > 0 {
			r.UtilizationRate = (c.end - c.start) / (r.Duration * 8) * 100
		}
		rentals = append(rentals, r)
	}

	type service struct {
		equipment string
		offset    int
		kind      string
		desc      string
		cost      float64
	}
	services := []service{
		{"EXC-001", -200, "preventive", "250h service and filter change", 450},
		{"EXC-001", -95, "corrective", "Hydraulic hose replacement", 1300},
		{"EXC-001", -30, "preventive", "Engine oil and filter service", 380},
		{"EXC-002", -70, "preventive", "Routine inspection", 220},
		{"EXC-003", -260, "corrective", "Engine failure, injector rebuild", 4200},
		{"EXC-003", -180, "corrective", "Hydraulic pump breakdown", 3600},
		{"EXC-003", -90, "corrective", "Transmission failure", 5100},
		{"EXC-003", -5, "corrective", "Engine overheating investigation", 2400},
		{"CRN-001", -160, "inspection", "Annual structural inspection", 900},
		{"CRN-001", -40, "preventive", "Wire rope and sheave check", 650},
		{"BLD-001", -140, "corrective", "Track and undercarriage repair", 2800},
		{"BLD-001", -75, "preventive", "Engine service", 500},
		{"LDR-001", -35, "preventive", "Brake and electrical check", 300},
		{"GRD-001", -55, "preventive", "Blade and hydraulic service", 420},
		{"TRK-001", -210, "corrective", "Electrical failure in starter circuit", 1600},
	}
	maintenance := make([]domain.MaintenanceRecord, 0, len(services))
	for i, s := range services {
		maintenance = append(maintenance, domain.MaintenanceRecord{
			ID:              fmt.Sprintf("MNT-%03d", i+1),
			EquipmentID:     s.equipment,
			MaintenanceDate: day(s.offset),
			MaintenanceType: s.kind,
			Description:     s.desc,
			Cost:            s.cost,
			PerformedBy:     "Fleet Service Team",
		})
	}

	type usage struct {
		id                           string
		total, idle, fuel, util, mnt float64
	}
	readings := []usage{
		{"EXC-001", 160, 24, 3.1, 85, 70},
		{"EXC-002", 150, 22, 3.0, 84, 88},
		{"EXC-003", 140, 25, 2.6, 82, 45},
		{"CRN-001", 170, 26, 3.3, 86, 78},
		{"CRN-002", 150, 21, 3.2, 87, 92},
		{"BLD-001", 165, 25, 2.9, 85, 60},
		{"BLD-002", 155, 23, 3.1, 85, 95},
		{"LDR-001", 150, 22, 3.4, 86, 82},
		{"LDR-002", 145, 23, 3.2, 84, 80},
		{"GRD-001", 150, 24, 3.0, 84, 76},
		{"TRK-001", 150, 140, 1.1, 7, 55},
		{"FRK-001", 140, 20, 3.5, 86, 90},
	}
	snapshots := make([]domain.UsageSnapshot, 0, len(readings))
	for _, u := range readings {
		snapshots = append(snapshots, domain.UsageSnapshot{
			EquipmentID:      u.id,
			TotalHours:       u.total,
			IdleHours:        u.idle,
			FuelEfficiency:   u.fuel,
			UtilizationRate:  u.util,
			MaintenanceScore: u.mnt,
			Timestamp:        at(day(0)),
		})
	}

	return domain.Dataset{
		Equipment:   equipment,
		Rentals:     rentals,
		Sites:       sites,
		Projects:    projects,
		Maintenance: maintenance,
		Usage:       snapshots,
	}
}
