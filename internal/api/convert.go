// Stashbridge - Jellyfin-compatible gateway for a Stash media library
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stashbridge

package api

import (
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/stashbridge/internal/identity"
	"github.com/tomtom215/stashbridge/internal/imageproxy"
	"github.com/tomtom215/stashbridge/internal/library"
	"github.com/tomtom215/stashbridge/internal/models"
	"github.com/tomtom215/stashbridge/internal/stash"
	"github.com/tomtom215/stashbridge/internal/stream"
)

// providerStash is the ProviderIds key carrying the Stash id.
const providerStash = "Stash"

// entityCatalogs is the catalog library each entity kind lives in when it
// was not reached through a browse.
var entityCatalogs = map[identity.Kind]uint64{
	identity.KindScene:     identity.CatalogAllScenes,
	identity.KindPerformer: identity.CatalogPerformers,
	identity.KindStudio:    identity.CatalogStudios,
	identity.KindGroup:     identity.CatalogGroups,
	identity.KindTag:       identity.CatalogTags,
}

// imageTag derives an image cache tag from the entity's modification time.
// Stash marks generated placeholder images with "default=true"; those get
// no tag so clients show their own placeholder.
func imageTag(updated time.Time, imagePath string) string {
	if strings.Contains(imagePath, "default=true") {
		return ""
	}
	return strconv.FormatInt(updated.Unix(), 16)
}

// entityImageTag is imageTag for entities whose image path is empty when
// they have no image.
func entityImageTag(updated time.Time, imagePath string) string {
	if imagePath == "" {
		return ""
	}
	return imageTag(updated, imagePath)
}

// parseDate reads Stash's partial dates ("2024", "2024-05", "2024-05-17").
func parseDate(s string) (time.Time, bool) {
	for _, layout := range []string{time.DateOnly, "2006-01", "2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// communityRating converts Stash's 0-100 rating to Jellyfin's 0-10.
func communityRating(rating100 *int) *float64 {
	if rating100 == nil {
		return nil
	}
	r := float64(*rating100) / 10
	return &r
}

// parentOf returns the id a node's ParentId reports: the node it was listed
// under, its catalog library when it was fetched directly, or the root for
// libraries.
func (h *Handler) parentOf(n *library.Node) string {
	if n.ParentID != "" {
		return n.ParentID
	}
	if n.Kind == library.KindLibrary {
		return h.rootID
	}
	if c, ok := entityCatalogs[n.Ref.Kind]; ok {
		return identity.EncodeCatalog(c)
	}
	return h.rootID
}

// nodeItem converts a node to the item clients see while browsing. Detail
// views also carry media sources.
func (h *Handler) nodeItem(n *library.Node, detail bool) models.BaseItemDto {
	return h.nodeItemAs(n, nodeType(n), detail)
}

// nodeItemAs converts a node using an explicit item Type.
func (h *Handler) nodeItemAs(n *library.Node, itemType string, detail bool) models.BaseItemDto {
	switch {
	case n.Kind == library.KindLibrary:
		return h.libraryItem(n)
	case n.Scene != nil:
		return h.sceneItem(n, detail)
	case n.Performer != nil:
		return h.performerItem(n, itemType)
	case n.Studio != nil:
		return h.studioItem(n, itemType)
	case n.Group != nil:
		return h.groupItem(n, itemType)
	case n.Tag != nil:
		return h.tagItem(n, itemType)
	default:
		item := models.NewBaseItem(h.serverID, n.ID, n.Name, itemType)
		item.IsFolder = n.IsFolder()
		item.ParentID = h.parentOf(n)
		return item
	}
}

// nodeItems converts a page of nodes.
func (h *Handler) nodeItems(nodes []library.Node) []models.BaseItemDto {
	items := make([]models.BaseItemDto, 0, len(nodes))
	for i := range nodes {
		items = append(items, h.nodeItem(&nodes[i], false))
	}
	return items
}

// folderCounts fills the child counts of a folder item.
func folderCounts(item *models.BaseItemDto, n *library.Node) {
	item.IsFolder = true
	if n.ChildCount >= 0 {
		count := n.ChildCount
		item.ChildCount = &count
		item.RecursiveItemCount = &count
		item.MovieCount = &count
	}
}

func (h *Handler) rootItem() models.BaseItemDto {
	item := models.NewBaseItem(h.serverID, h.rootID, "Media Folders", models.ItemTypeUserRootFolder)
	item.IsFolder = true
	item.LocationType = models.LocationTypeVirtual
	item.DisplayPreferencesID = h.rootID
	return item
}

func (h *Handler) libraryItem(n *library.Node) models.BaseItemDto {
	item := models.NewBaseItem(h.serverID, n.ID, n.Name, models.ItemTypeCollectionFolder)
	item.SortName = strings.ToLower(n.Name)
	item.ParentID = h.rootID
	item.CollectionType = collectionType(n)
	item.LocationType = models.LocationTypeFileSystem
	item.DisplayPreferencesID = n.ID
	item.PlayAccess = models.PlayAccessFull
	folderCounts(&item, n)
	item.PrimaryImageAspectRatio = models.SceneImageAspect

	if t := n.Tag; t != nil {
		if tag := entityImageTag(t.UpdatedAt, t.ImagePath); tag != "" {
			item.ImageTags[models.ImageTypePrimary] = tag
		}
		item.UserData = entityUserData(n.ID, t.Favorite)
		item.Overview = t.Description
	}
	return item
}

func (h *Handler) sceneItem(n *library.Node, detail bool) models.BaseItemDto {
	s := n.Scene
	item := models.NewBaseItem(h.serverID, n.ID, s.DisplayName(), models.ItemTypeMovie)
	item.SortName = strings.ToLower(item.Name)
	item.ParentID = h.parentOf(n)
	item.MediaType = models.MediaTypeVideo
	item.LocationType = models.LocationTypeFileSystem
	item.PlayAccess = models.PlayAccessFull
	item.VideoType = models.VideoTypeVideoFile
	item.Overview = s.Details
	item.Etag = imageTag(s.UpdatedAt, "")
	item.DateCreated = timePtr(s.CreatedAt)
	item.CommunityRating = communityRating(s.Rating100)
	item.CriticRating = s.Rating100
	item.CanDownload = true
	item.ProviderIDs[providerStash] = s.ID
	if s.Code != "" {
		item.Taglines = []string{s.Code}
	}
	if d, ok := parseDate(s.Date); ok {
		item.PremiereDate = &d
		item.ProductionYear = d.Year()
	}

	for _, t := range s.Tags {
		item.Genres = append(item.Genres, t.Name)
		item.Tags = append(item.Tags, t.Name)
		item.GenreItems = append(item.GenreItems, models.NameGuidPair{
			Name: t.Name,
			ID:   identity.MustEncode(identity.KindTag, t.ID),
		})
	}
	if s.Studio != nil {
		item.Studios = append(item.Studios, models.NameGuidPair{
			Name: s.Studio.Name,
			ID:   identity.MustEncode(identity.KindStudio, s.Studio.ID),
		})
	}
	for _, p := range s.Performers {
		item.People = append(item.People, models.BaseItemPerson{
			Name:            p.Name,
			ID:              identity.MustEncode(identity.KindPerformer, p.ID),
			Type:            models.PersonTypeActor,
			PrimaryImageTag: entityImageTag(s.UpdatedAt, p.ImagePath),
		})
	}
	if s.Director != "" {
		item.People = append(item.People, models.BaseItemPerson{Name: s.Director, Type: "Director"})
	}
	if idx := groupIndex(s, n.ParentID); idx != nil {
		item.IndexNumber = idx
	}

	if tag := imageTag(s.UpdatedAt, s.Paths.Screenshot); tag != "" {
		item.ImageTags[models.ImageTypePrimary] = tag
		item.ImageTags[models.ImageTypeThumb] = tag
		item.BackdropImageTags = []string{tag}
	}
	item.PrimaryImageAspectRatio = models.SceneImageAspect

	if desc, err := stream.Describe(s); err == nil {
		item.RunTimeTicks = models.SecondsToTicks(desc.Duration)
		item.Container = desc.Container
		item.Width = desc.Width
		item.Height = desc.Height
		if detail {
			src := mediaSource(n.ID, desc)
			item.MediaSources = []models.MediaSourceInfo{src}
			item.MediaStreams = src.MediaStreams
		}
	}

	item.UserData = sceneUserData(n.ID, s)
	return item
}

// groupIndex returns the scene's position in the group it was listed
// under.
func groupIndex(s *stash.Scene, parentID string) *int {
	if parentID == "" {
		return nil
	}
	groupID, err := identity.DecodeKind(parentID, identity.KindGroup)
	if err != nil {
		return nil
	}
	for _, g := range s.Groups {
		if g.Group.ID == groupID {
			return g.SceneIndex
		}
	}
	return nil
}

func sceneUserData(id string, s *stash.Scene) *models.UserItemDataDto {
	data := &models.UserItemDataDto{
		PlaybackPositionTicks: models.SecondsToTicks(s.ResumeTime),
		PlayCount:             s.PlayCount,
		Played:                s.PlayCount > 0,
		LastPlayedDate:        s.LastPlayedAt,
		Key:                   id,
		ItemID:                id,
	}
	if d := s.Duration(); d > 0 && s.ResumeTime > 0 {
		pct := min(s.ResumeTime/d*100, 100)
		data.PlayedPercentage = &pct
	}
	return data
}

func entityUserData(id string, favorite bool) *models.UserItemDataDto {
	return &models.UserItemDataDto{
		IsFavorite: favorite,
		Key:        id,
		ItemID:     id,
	}
}

func (h *Handler) performerItem(n *library.Node, itemType string) models.BaseItemDto {
	p := n.Performer
	item := models.NewBaseItem(h.serverID, n.ID, p.Name, itemType)
	item.SortName = strings.ToLower(p.Name)
	item.ParentID = h.parentOf(n)
	item.Overview = p.Details
	item.LocationType = models.LocationTypeFileSystem
	item.DateCreated = timePtr(p.CreatedAt)
	item.CommunityRating = communityRating(p.Rating100)
	item.ProviderIDs[providerStash] = p.ID
	if p.Disambiguation != "" {
		item.Taglines = []string{p.Disambiguation}
	}
	if p.Country != "" {
		item.ProductionLocations = []string{p.Country}
	}
	if d, ok := parseDate(p.Birthdate); ok {
		item.PremiereDate = &d
	}
	folderCounts(&item, n)
	if tag := entityImageTag(p.UpdatedAt, p.ImagePath); tag != "" {
		item.ImageTags[models.ImageTypePrimary] = tag
	}
	item.PrimaryImageAspectRatio = mappingFor(identity.KindPerformer).imageAspect
	item.UserData = entityUserData(n.ID, p.Favorite)
	return item
}

func (h *Handler) studioItem(n *library.Node, itemType string) models.BaseItemDto {
	s := n.Studio
	item := models.NewBaseItem(h.serverID, n.ID, s.Name, itemType)
	item.SortName = strings.ToLower(s.Name)
	item.ParentID = h.parentOf(n)
	item.Overview = s.Details
	item.LocationType = models.LocationTypeFileSystem
	item.DateCreated = timePtr(s.CreatedAt)
	item.CommunityRating = communityRating(s.Rating100)
	item.ProviderIDs[providerStash] = s.ID
	folderCounts(&item, n)
	if tag := entityImageTag(s.UpdatedAt, s.ImagePath); tag != "" {
		item.ImageTags[models.ImageTypePrimary] = tag
		item.ImageTags[models.ImageTypeThumb] = tag
		item.ImageTags[models.ImageTypeLogo] = tag
	}
	item.PrimaryImageAspectRatio = mappingFor(identity.KindStudio).imageAspect
	item.UserData = entityUserData(n.ID, s.Favorite)
	return item
}

func (h *Handler) groupItem(n *library.Node, itemType string) models.BaseItemDto {
	g := n.Group
	item := models.NewBaseItem(h.serverID, n.ID, g.Name, itemType)
	item.SortName = strings.ToLower(g.Name)
	item.ParentID = h.parentOf(n)
	item.Overview = g.Synopsis
	item.LocationType = models.LocationTypeFileSystem
	item.DateCreated = timePtr(g.CreatedAt)
	item.CommunityRating = communityRating(g.Rating100)
	item.ProviderIDs[providerStash] = g.ID
	if d, ok := parseDate(g.Date); ok {
		item.PremiereDate = &d
		item.ProductionYear = d.Year()
	}
	if g.Duration != nil {
		item.RunTimeTicks = int64(*g.Duration) * models.TicksPerSecond
	}
	if g.Studio != nil {
		item.Studios = append(item.Studios, models.NameGuidPair{
			Name: g.Studio.Name,
			ID:   identity.MustEncode(identity.KindStudio, g.Studio.ID),
		})
	}
	for _, t := range g.Tags {
		item.Genres = append(item.Genres, t.Name)
		item.Tags = append(item.Tags, t.Name)
	}
	if g.Director != "" {
		item.People = append(item.People, models.BaseItemPerson{Name: g.Director, Type: "Director"})
	}
	folderCounts(&item, n)
	if tag := entityImageTag(g.UpdatedAt, g.FrontImagePath); tag != "" {
		item.ImageTags[models.ImageTypePrimary] = tag
	}
	if tag := entityImageTag(g.UpdatedAt, g.BackImagePath); tag != "" {
		item.BackdropImageTags = []string{tag}
	}
	item.PrimaryImageAspectRatio = mappingFor(identity.KindGroup).imageAspect
	item.UserData = entityUserData(n.ID, false)
	return item
}

func (h *Handler) tagItem(n *library.Node, itemType string) models.BaseItemDto {
	t := n.Tag
	item := models.NewBaseItem(h.serverID, n.ID, t.Name, itemType)
	item.SortName = strings.ToLower(t.Name)
	item.ParentID = h.parentOf(n)
	item.Overview = t.Description
	item.LocationType = models.LocationTypeFileSystem
	item.DateCreated = timePtr(t.CreatedAt)
	item.ProviderIDs[providerStash] = t.ID
	folderCounts(&item, n)
	if tag := entityImageTag(t.UpdatedAt, t.ImagePath); tag != "" {
		item.ImageTags[models.ImageTypePrimary] = tag
	}
	item.PrimaryImageAspectRatio = mappingFor(identity.KindTag).imageAspect
	item.UserData = entityUserData(n.ID, t.Favorite)
	return item
}

// mediaSource describes the single direct-play source of a scene.
func mediaSource(itemID string, d stream.Descriptor) models.MediaSourceInfo {
	src := models.MediaSourceInfo{
		Protocol:             models.MediaProtocolFile,
		ID:                   itemID,
		Path:                 d.FileName,
		Type:                 models.MediaSourceTypeDefault,
		Container:            d.Container,
		Size:                 d.Size,
		Name:                 strings.TrimSuffix(d.FileName, path.Ext(d.FileName)),
		RunTimeTicks:         models.SecondsToTicks(d.Duration),
		Bitrate:              d.Bitrate,
		SupportsDirectPlay:   true,
		SupportsDirectStream: true,
		SupportsProbing:      true,
		VideoType:            models.VideoTypeVideoFile,
		MediaStreams:         []models.MediaStream{},
		MediaAttachments:     []string{},
		Formats:              []string{},
		RequiredHTTPHeaders:  map[string]string{},
		DirectStreamURL:      fmt.Sprintf("/Videos/%s/stream.%s?static=true&MediaSourceId=%s", itemID, d.Container, itemID),
	}

	if d.VideoCodec != "" || d.Width > 0 {
		src.MediaStreams = append(src.MediaStreams, models.MediaStream{
			Codec:            strings.ToLower(d.VideoCodec),
			Type:             models.MediaStreamTypeVideo,
			Index:            len(src.MediaStreams),
			IsDefault:        true,
			Width:            d.Width,
			Height:           d.Height,
			BitRate:          d.Bitrate,
			AverageFrameRate: d.FrameRate,
			RealFrameRate:    d.FrameRate,
			DisplayTitle:     videoTitle(d),
			VideoRange:       "SDR",
			VideoRangeType:   "SDR",
		})
	}
	if d.AudioCodec != "" {
		idx := len(src.MediaStreams)
		src.MediaStreams = append(src.MediaStreams, models.MediaStream{
			Codec:        strings.ToLower(d.AudioCodec),
			Type:         models.MediaStreamTypeAudio,
			Index:        idx,
			IsDefault:    true,
			DisplayTitle: strings.ToUpper(d.AudioCodec),
		})
		src.DefaultAudioStreamIndex = &idx
	}
	return src
}

// videoTitle renders "1080p H264" style stream titles.
func videoTitle(d stream.Descriptor) string {
	parts := make([]string, 0, 2)
	if d.Height > 0 {
		parts = append(parts, strconv.Itoa(d.Height)+"p")
	}
	if d.VideoCodec != "" {
		parts = append(parts, strings.ToUpper(d.VideoCodec))
	}
	return strings.Join(parts, " ")
}

// imageInfos lists the images an item carries for /Items/{id}/Images.
func imageInfos(ref identity.Ref, item *models.BaseItemDto) []models.ImageInfo {
	infos := []models.ImageInfo{}
	for _, imageType := range []string{models.ImageTypePrimary, models.ImageTypeThumb, models.ImageTypeLogo} {
		if tag, ok := item.ImageTags[imageType]; ok && imageproxy.HasImage(ref.Kind, imageType) {
			infos = append(infos, models.ImageInfo{ImageType: imageType, ImageTag: tag})
		}
	}
	for i, tag := range item.BackdropImageTags {
		if !imageproxy.HasImage(ref.Kind, models.ImageTypeBackdrop) {
			break
		}
		idx := i
		infos = append(infos, models.ImageInfo{ImageType: models.ImageTypeBackdrop, ImageIndex: &idx, ImageTag: tag})
	}
	return infos
}
