package entity

import (
	"fmt"

	"github.com/faucetdb/touchline/internal/fieldmap"
	"github.com/faucetdb/touchline/internal/query"
)

// UserSeqStart is the first user id handed out; user ids double as login
// identifiers and are kept ten digits long.
const UserSeqStart = 1000000000

func integer(name string) fieldmap.FieldSpec {
	return fieldmap.FieldSpec{Name: name, Kind: fieldmap.KindInteger}
}

func decimal(name string) fieldmap.FieldSpec {
	return fieldmap.FieldSpec{Name: name, Kind: fieldmap.KindDecimal}
}

func text(name string) fieldmap.FieldSpec {
	return fieldmap.FieldSpec{Name: name, Kind: fieldmap.KindString}
}

func date(name string) fieldmap.FieldSpec {
	return fieldmap.FieldSpec{Name: name, Kind: fieldmap.KindDate}
}

func required(s fieldmap.FieldSpec) fieldmap.FieldSpec {
	s.Required = true
	return s
}

func column(s fieldmap.FieldSpec, col string) fieldmap.FieldSpec {
	s.Column = col
	return s
}

func param(s fieldmap.FieldSpec, p string) fieldmap.FieldSpec {
	s.Param = p
	return s
}

func asc(col string) []query.OrderClause {
	return []query.OrderClause{{Column: col, Direction: "ASC"}}
}

// Football returns the built-in catalog of the football manager schema.
func Football() *Catalog {
	lineupPlayers := make([]fieldmap.FieldSpec, 0, 11)
	for i := 1; i <= 11; i++ {
		lineupPlayers = append(lineupPlayers, integer(fmt.Sprintf("player%d_id", i)))
	}

	return MustCatalog(
		&Entity{
			Name:  "players",
			Table: "players",
			Key:   "player_id",
			Fields: fieldmap.MustWhitelist(
				required(integer("player_id")),
				required(text("player_name")),
				date("birthday"),
				integer("team_id"),
				text("role"),
				integer("used_foot"),
				integer("health_state"),
				integer("rank"),
				integer("game_state"),
				integer("trans_state"),
				integer("is_show"),
			),
			ListOrder: asc("player_name"),
			Filters:   []string{"team_id", "is_show", "trans_state"},
			Search:    []string{"player_name"},
		},
		&Entity{
			Name:     "teams",
			Table:    "teams",
			Key:      "team_id",
			Sequence: "TEAM_SEQ",
			Fields: fieldmap.MustWhitelist(
				required(text("team_name")),
				text("city"),
			),
			ListOrder: asc("team_id"),
			Filters:   []string{"city"},
			Search:    []string{"team_name"},
		},
		&Entity{
			Name:     "contracts",
			Table:    "contracts",
			Key:      "contract_id",
			Sequence: "CONTRACT_SEQ",
			Fields: fieldmap.MustWhitelist(
				required(integer("player_id")),
				required(integer("team_id")),
				column(date("start_time"), "start_date"),
				column(date("end_time"), "end_date"),
				decimal("salary"),
			),
			ListOrder: asc("contract_id"),
			Filters:   []string{"player_id", "team_id"},
		},
		&Entity{
			Name:     "matches",
			Table:    "matches",
			Key:      "match_id",
			Sequence: "MATCH_SEQ",
			Fields: fieldmap.MustWhitelist(
				required(date("match_date")),
				param(integer("match_stadium"), "stadium"),
				required(integer("home_team_id")),
				required(integer("away_team_id")),
				integer("home_team_score"),
				integer("away_team_score"),
			),
			ListOrder: []query.OrderClause{{Column: "match_date", Direction: "DESC"}},
			Filters:   []string{"home_team_id", "away_team_id", "match_stadium"},
		},
		&Entity{
			Name:     "transfers",
			Table:    "transfers",
			Key:      "transfer_id",
			Sequence: "TRANSFER_SEQ",
			Fields: fieldmap.MustWhitelist(
				integer("contract_id"),
				required(integer("player_id")),
				integer("team_id_from"),
				integer("team_id_to"),
				date("transfer_date"),
				decimal("transfer_fees"),
			),
			ListOrder: asc("transfer_id"),
			Filters:   []string{"player_id", "team_id_from", "team_id_to", "contract_id"},
		},
		&Entity{
			Name:     "medicals",
			Table:    "medicals",
			Key:      "medical_id",
			Sequence: "MEDICAL_SEQ",
			Fields: fieldmap.MustWhitelist(
				required(integer("player_id")),
				text("hurt_part"),
				date("hurt_time"),
				text("medical_care"),
				integer("state"),
			),
			ListOrder: asc("medical_id"),
			Filters:   []string{"player_id", "state"},
		},
		&Entity{
			Name:     "trainings",
			Table:    "trainings",
			Key:      "training_id",
			Sequence: "TRAINING_SEQ",
			Fields: fieldmap.MustWhitelist(
				text("train_focus"),
				integer("team_formation"),
				integer("train_score"),
				integer("team_familiarity"),
				text("train_intension"),
				integer("train_stadium_id"),
				integer("train_team_id"),
			),
			ListOrder: asc("training_id"),
			Filters:   []string{"train_team_id", "train_stadium_id"},
		},
		&Entity{
			Name:     "stadiums",
			Table:    "stadiums",
			Key:      "stadium_id",
			Sequence: "STADIUM_SEQ",
			Fields: fieldmap.MustWhitelist(
				required(text("stadium_name")),
				text("stadium_city"),
				integer("capacity"),
			),
			ListOrder: asc("stadium_name"),
			Search:    []string{"stadium_name"},
		},
		&Entity{
			Name:     "lineups",
			Table:    "lineups",
			Key:      "lineup_id",
			Sequence: "LINEUP_SEQ",
			Fields: fieldmap.MustWhitelist(append([]fieldmap.FieldSpec{
				text("note"),
				required(integer("team_id")),
				integer("match_id"),
			}, lineupPlayers...)...),
			ListOrder: asc("lineup_id"),
			Filters:   []string{"team_id", "match_id"},
		},
		&Entity{
			Name:     "events",
			Table:    "events",
			Key:      "event_id",
			Sequence: "EVENT_SEQ",
			Fields: fieldmap.MustWhitelist(
				required(integer("match_id")),
				integer("player_id"),
				text("event_type"),
				date("event_time"),
			),
			ListOrder: asc("event_id"),
			Filters:   []string{"match_id", "player_id", "event_type"},
		},
		&Entity{
			Name:     "records",
			Table:    "records",
			Key:      "record_id",
			Sequence: "RECORD_SEQ",
			Fields: fieldmap.MustWhitelist(
				required(integer("team_id")),
				date("transaction_date"),
				required(decimal("amount")),
				text("description"),
			),
			ListOrder: []query.OrderClause{{Column: "transaction_date", Direction: "DESC"}},
			Filters:   []string{"team_id"},
		},
		Users(),
	)
}

// Users is the account table. It is internal: accounts are managed through
// the user routes, which hash secrets and check roles.
func Users() *Entity {
	return &Entity{
		Name:          "users",
		Table:         "users",
		Key:           "user_id",
		Sequence:      "USER_SEQ",
		SequenceStart: UserSeqStart,
		Fields: fieldmap.MustWhitelist(
			required(text("user_name")),
			text("user_right"),
			required(text("user_password")),
			text("user_phone"),
			text("icon"),
			text("delete_icon"),
		),
		ListOrder: asc("user_id"),
		Search:    []string{"user_name", "user_phone"},
		Internal:  true,
	}
}
