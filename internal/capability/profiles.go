// SPDX-License-Identifier: MIT

package capability

import "strings"

// Built-in profiles for the LERS server versions seen in the field. V3 and
// V4 moved report generation between managers and renamed several enum
// members, which is exactly the drift the resolver exists to absorb.

func profileV3() Profile {
	return Profile{
		Name: "Lers.Core.V3",
		Types: []Type{
			{
				Name: "Authentication",
				Members: map[string]Member{
					"Login":  {Name: "Login", Method: "POST", Path: "/api/v0.1/Login"},
					"Logout": {Name: "Logout", Method: "POST", Path: "/api/v0.1/Logout"},
				},
			},
			{
				Name: "MeasurePointManager",
				Members: map[string]Member{
					"GetMeasurePoints": {Name: "GetMeasurePoints", Method: "GET", Path: "/api/v0.1/MeasurePoints"},
					"GetMeasurePoint":  {Name: "GetMeasurePoint", Method: "GET", Path: "/api/v0.1/MeasurePoints/{id}"},
				},
			},
			{
				Name: "NodeManager",
				Members: map[string]Member{
					"GetNodes": {Name: "GetNodes", Method: "GET", Path: "/api/v0.1/Nodes"},
				},
			},
			{
				Name: "ReportManager",
				Members: map[string]Member{
					"GetReports":       {Name: "GetReports", Method: "GET", Path: "/api/v0.1/MeasurePoints/{id}/Reports"},
					"GenerateExported": {Name: "GenerateExported", Method: "POST", Path: "/api/v0.1/Reports/Generate"},
				},
			},
		},
		Enums: []Enum{
			{Name: "DataType", Values: []EnumValue{
				{Name: "Day", Value: 0},
				{Name: "Hour", Value: 1},
				{Name: "Month", Value: 2},
			}},
			{Name: "ExportFormat", Values: []EnumValue{
				{Name: "Pdf", Value: 0},
				{Name: "Xlsx", Value: 1},
				{Name: "Csv", Value: 2},
			}},
			{Name: "MeasurePointType", Values: []EnumValue{
				{Name: "Regular", Value: 0},
				{Name: "Communal", Value: 1},
			}},
		},
	}
}

func profileV4() Profile {
	return Profile{
		Name: "Lers.Core.V4",
		Types: []Type{
			{
				Name: "Authentication",
				Members: map[string]Member{
					"Login":  {Name: "Login", Method: "POST", Path: "/api/v1/login"},
					"Logout": {Name: "Logout", Method: "POST", Path: "/api/v1/logout"},
				},
			},
			{
				Name: "MeasurePointManager",
				Members: map[string]Member{
					"GetMeasurePoints": {Name: "GetMeasurePoints", Method: "GET", Path: "/api/v1/measure-points"},
					"GetMeasurePoint":  {Name: "GetMeasurePoint", Method: "GET", Path: "/api/v1/measure-points/{id}"},
				},
			},
			{
				Name: "NodeManager",
				Members: map[string]Member{
					"GetNodes": {Name: "GetNodes", Method: "GET", Path: "/api/v1/nodes"},
				},
			},
			{
				// V4 folded report operations into the export manager.
				Name: "ReportManager",
				Members: map[string]Member{
					"GetReports":       {Name: "GetReports", Method: "GET", Path: "/api/v1/measure-points/{id}/reports"},
					"GenerateExported": {Name: "GenerateExported", Method: "POST", Path: "/api/v1/reports/export"},
				},
			},
		},
		Enums: []Enum{
			{Name: "DataType", Values: []EnumValue{
				{Name: "Daily", Value: 0},
				{Name: "Hourly", Value: 1},
				{Name: "Monthly", Value: 2},
			}},
			{Name: "ExportFormat", Values: []EnumValue{
				{Name: "Pdf", Value: 0},
				{Name: "Excel", Value: 1},
				{Name: "Csv", Value: 2},
			}},
			{Name: "MeasurePointType", Values: []EnumValue{
				{Name: "Regular", Value: 0},
				{Name: "Communal", Value: 1},
			}},
		},
	}
}

// ProfilesFor returns all built-in vendor profiles ordered so that the one
// matching the reported server version is preferred. Unknown versions fall
// back to the newest profile first.
func ProfilesFor(serverVersion string) ([]Profile, string) {
	v3, v4 := profileV3(), profileV4()
	if strings.HasPrefix(serverVersion, "3.") {
		return []Profile{v3, v4}, v3.Name
	}
	return []Profile{v4, v3}, v4.Name
}
