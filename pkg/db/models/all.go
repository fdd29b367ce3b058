package models

// All lists every persisted model, in dependency order, for AutoMigrate in tests.
func All() []any {
	return []any{
		&User{},
		&Address{},
		&Category{},
		&Product{},
		&Cart{},
		&CartItem{},
		&Order{},
		&OrderItem{},
		&Delivery{},
		&InventoryLog{},
		&Review{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}
