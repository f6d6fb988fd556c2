package models

// ItemStack is an opaque inventory slot as reported by the game server
type ItemStack struct {
	Material string         `json:"material"`
	Amount   int            `json:"amount"`
	Meta     map[string]any `json:"meta,omitempty"`
}

// SessionSnapshot holds a participant's pre-match state so it can be put back afterwards
type SessionSnapshot struct {
	Inventory []*ItemStack `json:"inventory"`
	Armor     []*ItemStack `json:"armor"`
	Location  Location     `json:"location"`
}

// Kit is the loadout every participant receives when a match starts
type Kit struct {
	Items      []ItemStack `json:"items"`
	Armor      []ItemStack `json:"armor"`
	Health     float64     `json:"health"`
	Food       int         `json:"food"`
	GameMode   string      `json:"game_mode"`
	ClearBuffs bool        `json:"clear_buffs"`
}

// DefaultKit is the standard duel loadout
func DefaultKit() Kit {
	return Kit{
		Items: []ItemStack{
			{Material: "DIAMOND_SWORD", Amount: 1},
			{Material: "BOW", Amount: 1},
			{Material: "ARROW", Amount: 16},
			{Material: "GOLDEN_APPLE", Amount: 3},
		},
		Armor: []ItemStack{
			{Material: "DIAMOND_HELMET", Amount: 1},
			{Material: "DIAMOND_CHESTPLATE", Amount: 1},
			{Material: "DIAMOND_LEGGINGS", Amount: 1},
			{Material: "DIAMOND_BOOTS", Amount: 1},
		},
		Health:     20,
		Food:       20,
		GameMode:   "SURVIVAL",
		ClearBuffs: true,
	}
}
