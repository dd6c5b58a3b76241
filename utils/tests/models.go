package tests

import (
	"github.com/modelkit/tableless/schema"
)

// Model fixtures:
// A User belongs to a Company and to a Manager (a User, self referencing).
// A Pet belongs to a User, a Toy belongs to a Pet through a custom foreign key.
// A Language is keyed by its code.

// CompanyDefinition company fixture
func CompanyDefinition() *schema.Definition {
	return schema.Define("Company").
		Column("id", schema.Integer, schema.NotNull()).
		Column("name", schema.String)
}

// UserDefinition user fixture
func UserDefinition() *schema.Definition {
	return schema.Define("User").
		Column("id", schema.Integer, schema.NotNull()).
		Column("name", schema.String).
		Column("age", schema.Integer, schema.Default(0)).
		Column("birthday", schema.Date).
		Column("active", schema.Boolean, schema.Default(true)).
		Column("company_id", schema.Integer).
		Column("manager_id", schema.Integer).
		Column("language_code", schema.String).
		BelongsTo("company").
		BelongsTo("manager", schema.Model("User")).
		BelongsTo("language", schema.ForeignKey("language_code"))
}

// PetDefinition pet fixture
func PetDefinition() *schema.Definition {
	return schema.Define("Pet").
		Column("id", schema.Integer, schema.NotNull()).
		Column("name", schema.String).
		Column("user_id", schema.Integer).
		BelongsTo("user")
}

// ToyDefinition toy fixture
func ToyDefinition() *schema.Definition {
	return schema.Define("Toy").
		Column("id", schema.UUID, schema.NotNull()).
		Column("name", schema.String).
		Column("price", schema.Decimal).
		Column("owner_id", schema.Integer).
		BelongsTo("owner", schema.Model("Pet"))
}

// LanguageDefinition language fixture
func LanguageDefinition() *schema.Definition {
	return schema.Define("Language").
		PrimaryKey("code").
		Column("code", schema.String, schema.NotNull()).
		Column("name", schema.String)
}

// Definitions every fixture, targets included
func Definitions() []*schema.Definition {
	return []*schema.Definition{
		CompanyDefinition(),
		LanguageDefinition(),
		UserDefinition(),
		PetDefinition(),
		ToyDefinition(),
	}
}
