package infrastructure

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/samber/lo"
	"github.com/sglre6355/nerox/internal/modules/music_player/application/ports"
	"github.com/sglre6355/nerox/internal/modules/music_player/domain"
)

var _ ports.RequesterResolver = (*MemberRequesterResolver)(nil)

// MemberRequesterResolver builds requesters from guild members, reading the
// state cache first and falling back to REST.
type MemberRequesterResolver struct {
	session *discordgo.Session
}

// NewMemberRequesterResolver creates a new MemberRequesterResolver.
func NewMemberRequesterResolver(session *discordgo.Session) *MemberRequesterResolver {
	return &MemberRequesterResolver{session: session}
}

// ResolveRequester returns the member's guild nickname and avatar.
func (r *MemberRequesterResolver) ResolveRequester(
	ctx context.Context,
	guildID, userID snowflake.ID,
) (domain.Requester, error) {
	member, err := r.session.State.Member(guildID.String(), userID.String())
	if err != nil || member.User == nil {
		member, err = r.session.GuildMember(guildID.String(), userID.String(), discordgo.WithContext(ctx))
		if err != nil {
			return domain.Requester{}, fmt.Errorf("failed to fetch guild member: %w", err)
		}
	}

	return memberRequester(userID, member), nil
}

func memberRequester(userID snowflake.ID, member *discordgo.Member) domain.Requester {
	return domain.Requester{
		ID:        userID,
		Name:      lo.CoalesceOrEmpty(member.Nick, member.User.GlobalName, member.User.Username),
		AvatarURL: member.AvatarURL(""),
	}
}
