package memberships

import (
	"github.com/quartermasterhq/quartermaster-backend/pkg/db/models"
)

type membershipWithTeamRow struct {
	models.TeamMembership
	TeamName string `gorm:"column:team_name"`
}

func membershipWithTeamFromRow(row membershipWithTeamRow) MembershipWithTeam {
	return MembershipWithTeam{
		MembershipID: row.ID,
		TeamID:       row.TeamID,
		UserID:       row.UserID,
		TeamName:     row.TeamName,
		RoleID:       row.RoleID,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}

func membershipRowsToDTO(rows []membershipWithTeamRow) []MembershipWithTeam {
	out := make([]MembershipWithTeam, 0, len(rows))
	for _, row := range rows {
		out = append(out, membershipWithTeamFromRow(row))
	}
	return out
}

type teamMemberRow struct {
	models.TeamMembership
	Username string  `gorm:"column:username"`
	UserName *string `gorm:"column:user_name"`
	Email    *string `gorm:"column:email"`
}

func teamMembersFromRows(rows []teamMemberRow) []TeamMemberDTO {
	out := make([]TeamMemberDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, TeamMemberDTO{
			MembershipID: row.ID,
			TeamID:       row.TeamID,
			UserID:       row.UserID,
			Username:     row.Username,
			Name:         row.UserName,
			Email:        row.Email,
			RoleID:       row.RoleID,
			CreatedAt:    row.CreatedAt,
		})
	}
	return out
}
