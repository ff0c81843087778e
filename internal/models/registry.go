package models

// ModelRegistry lists the models handled by gorm AutoMigrate in dev-like environments.
var ModelRegistry = []interface{}{
	&WaitlistEntry{},
	&WaitlistSequence{},
	&Settings{},
	&AdminUser{},
	&AdminSession{},
}
