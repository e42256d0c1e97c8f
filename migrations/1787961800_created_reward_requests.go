package migrations

import (
	"encoding/json"

	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

// The two partial unique indexes are the storage-level admission guards: a user
// can hold at most one non-rejected request per reward, and at most one
// approved request per event. Rejected rows stay outside both indexes so the
// full audit trail is kept.
func init() {
	m.Register(func(app core.App) error {
		jsonData := `{
			"id": "req6t9w2z4hmkcs",
			"name": "reward_requests",
			"type": "base",
			"system": false,
			"fields": [
				{
					"autogeneratePattern": "[a-z0-9]{15}",
					"hidden": false,
					"id": "text3208210256",
					"max": 15,
					"min": 15,
					"name": "id",
					"pattern": "^[a-z0-9]+$",
					"presentable": false,
					"primaryKey": true,
					"required": true,
					"system": true,
					"type": "text"
				},
				{
					"autogeneratePattern": "",
					"hidden": false,
					"id": "text2809058197",
					"max": 0,
					"min": 0,
					"name": "user_id",
					"pattern": "",
					"presentable": false,
					"primaryKey": false,
					"required": true,
					"system": false,
					"type": "text"
				},
				{
					"autogeneratePattern": "",
					"hidden": false,
					"id": "text3676361174",
					"max": 0,
					"min": 0,
					"name": "reward_id",
					"pattern": "",
					"presentable": false,
					"primaryKey": false,
					"required": true,
					"system": false,
					"type": "text"
				},
				{
					"autogeneratePattern": "",
					"hidden": false,
					"id": "text1912072331",
					"max": 0,
					"min": 0,
					"name": "event_id",
					"pattern": "",
					"presentable": false,
					"primaryKey": false,
					"required": false,
					"system": false,
					"type": "text"
				},
				{
					"hidden": false,
					"id": "select2063623452",
					"maxSelect": 1,
					"name": "status",
					"presentable": false,
					"required": true,
					"system": false,
					"type": "select",
					"values": [
						"pending",
						"approved",
						"rejected"
					]
				},
				{
					"autogeneratePattern": "",
					"hidden": false,
					"id": "text3804118744",
					"max": 0,
					"min": 0,
					"name": "rejection_reason",
					"pattern": "",
					"presentable": false,
					"primaryKey": false,
					"required": false,
					"system": false,
					"type": "text"
				},
				{
					"hidden": false,
					"id": "date1268259286",
					"max": "",
					"min": "",
					"name": "approved_at",
					"presentable": false,
					"required": false,
					"system": false,
					"type": "date"
				},
				{
					"hidden": false,
					"id": "date2861197709",
					"max": "",
					"min": "",
					"name": "rejected_at",
					"presentable": false,
					"required": false,
					"system": false,
					"type": "date"
				},
				{
					"hidden": false,
					"id": "autodate2990389176",
					"name": "created",
					"onCreate": true,
					"onUpdate": false,
					"presentable": false,
					"system": false,
					"type": "autodate"
				},
				{
					"hidden": false,
					"id": "autodate3332085495",
					"name": "updated",
					"onCreate": true,
					"onUpdate": true,
					"presentable": false,
					"system": false,
					"type": "autodate"
				}
			],
			"indexes": [
				"CREATE UNIQUE INDEX ` + "`idx_requests_active_claim`" + ` ON ` + "`reward_requests`" + ` (` + "`user_id`" + `, ` + "`reward_id`" + `) WHERE ` + "`status`" + ` != 'rejected'",
				"CREATE UNIQUE INDEX ` + "`idx_requests_event_grant`" + ` ON ` + "`reward_requests`" + ` (` + "`user_id`" + `, ` + "`event_id`" + `) WHERE ` + "`status`" + ` = 'approved'",
				"CREATE INDEX ` + "`idx_requests_status`" + ` ON ` + "`reward_requests`" + ` (` + "`status`" + `)",
				"CREATE INDEX ` + "`idx_requests_user`" + ` ON ` + "`reward_requests`" + ` (` + "`user_id`" + `)"
			],
			"listRule": null,
			"viewRule": null,
			"createRule": null,
			"updateRule": null,
			"deleteRule": null
		}`

		collection := &core.Collection{}
		if err := json.Unmarshal([]byte(jsonData), &collection); err != nil {
			return err
		}

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("req6t9w2z4hmkcs")
		if err != nil {
			return err
		}

		return app.Delete(collection)
	})
}
