package model

// All returns every persisted model in dependency order for AutoMigrate
func All() []interface{} {
	return []interface{}{
		&User{},
		&Course{},
		&CourseReview{},
		&Enrollment{},
		&Invoice{},
		&Payment{},
		&Expense{},
		&Revenue{},
		&JWTTokenBlacklist{},
		&CronJobLog{},
		&AdminAuditLog{},
	}
}
