package npc

import "mercadolp/internal/model"

// DefaultRoster returns the traders that populate a new market.
func DefaultRoster() []model.NPCTrader {
	return []model.NPCTrader{
		{
			ID:              "dona-rosa",
			Name:            "Doña Rosa",
			Avatar:          "👵",
			Personality:     model.PersonalityComprador,
			Catchphrase:     "¡Las fresas de hoy están buenísimas!",
			PreferredTokens: []string{"fresa", "manzana"},
		},
		{
			ID:              "el-tiburon",
			Name:            "El Tiburón",
			Avatar:          "🦈",
			Personality:     model.PersonalityEspeculador,
			Catchphrase:     "Compro barato, vendo caro.",
			PreferredTokens: []string{model.AnyToken},
		},
		{
			ID:              "pepe",
			Name:            "Pepe",
			Avatar:          "🧑‍🌾",
			Personality:     model.PersonalityCasual,
			Catchphrase:     "Pasaba por aquí...",
			PreferredTokens: []string{"platano", "naranja"},
		},
		{
			ID:              "la-profe",
			Name:            "La Profe",
			Avatar:          "👩‍🏫",
			Personality:     model.PersonalityComprador,
			Catchphrase:     "Siempre diversifica.",
			PreferredTokens: []string{"uva", "pina"},
		},
		{
			ID:              "chispa",
			Name:            "Chispa",
			Avatar:          "⚡",
			Personality:     model.PersonalityEspeculador,
			Catchphrase:     "¡Volatilidad es oportunidad!",
			PreferredTokens: []string{model.AnyToken},
		},
	}
}
