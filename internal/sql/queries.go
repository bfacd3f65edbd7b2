package sql

import (
	"embed"
)

//go:embed migrations/*.sql
var Migrations embed.FS

//go:embed queries/select_base_rates.sql
var SelectBaseRates string

//go:embed queries/delete_schedule.sql
var DeleteSchedule string

//go:embed queries/count_schedule_rows.sql
var CountScheduleRows string
