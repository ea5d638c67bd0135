// Stashbridge - Jellyfin-compatible gateway for a Stash media library
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stashbridge

package stash

import (
	"fmt"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

// document is a parsed GraphQL operation. Parsing at init catches syntax
// errors in the query text before the first request is sent.
type document struct {
	name  string
	query string
	// retry marks operations that are safe to send twice.
	retry bool
}

func mustDocument(query string, retry bool) document {
	doc, err := parser.ParseQuery(&ast.Source{Name: "stash", Input: query})
	if err != nil {
		panic(fmt.Sprintf("stash: invalid GraphQL document: %v", err))
	}
	if len(doc.Operations) != 1 {
		panic(fmt.Sprintf("stash: document must hold exactly one operation, got %d", len(doc.Operations)))
	}
	op := doc.Operations[0]
	if op.Name == "" {
		panic("stash: operations must be named")
	}
	for _, frag := range doc.Fragments {
		if frag.TypeCondition == "" {
			panic("stash: fragment " + frag.Name + " has no type condition")
		}
	}
	return document{name: op.Name, query: query, retry: retry}
}

const sceneFields = `
fragment SceneData on Scene {
  id
  title
  code
  details
  director
  date
  rating100
  o_counter
  organized
  play_count
  resume_time
  last_played_at
  created_at
  updated_at
  files {
    id
    path
    basename
    size
    duration
    video_codec
    audio_codec
    width
    height
    frame_rate
    bit_rate
    format
  }
  paths {
    screenshot
    stream
    preview
  }
  studio { id name }
  tags { id name }
  performers { id name image_path }
  groups {
    group { id name }
    scene_index
  }
}`

const performerFields = `
fragment PerformerData on Performer {
  id
  name
  disambiguation
  gender
  birthdate
  country
  details
  image_path
  favorite
  scene_count
  rating100
  created_at
  updated_at
}`

const studioFields = `
fragment StudioData on Studio {
  id
  name
  details
  image_path
  favorite
  scene_count
  rating100
  parent_studio { id name }
  created_at
  updated_at
}`

const groupFields = `
fragment GroupData on Group {
  id
  name
  synopsis
  date
  duration
  director
  rating100
  front_image_path
  back_image_path
  scene_count
  studio { id name }
  tags { id name }
  created_at
  updated_at
}`

const tagFields = `
fragment TagData on Tag {
  id
  name
  description
  image_path
  favorite
  scene_count
  children { id name }
  parents { id name }
  created_at
  updated_at
}`

const savedFilterFields = `
fragment SavedFilterData on SavedFilter {
  id
  mode
  name
  find_filter { q page per_page sort direction }
  object_filter
}`

var (
	docFindScenes = mustDocument(`
query FindScenes($filter: FindFilterType, $scene_filter: SceneFilterType, $scene_ids: [Int!]) {
  findScenes(filter: $filter, scene_filter: $scene_filter, scene_ids: $scene_ids) {
    count
    scenes { ...SceneData }
  }
}`+sceneFields, true)

	docFindScene = mustDocument(`
query FindScene($id: ID!) {
  findScene(id: $id) { ...SceneData }
}`+sceneFields, true)

	docFindPerformers = mustDocument(`
query FindPerformers($filter: FindFilterType, $performer_filter: PerformerFilterType) {
  findPerformers(filter: $filter, performer_filter: $performer_filter) {
    count
    performers { ...PerformerData }
  }
}`+performerFields, true)

	docFindPerformer = mustDocument(`
query FindPerformer($id: ID!) {
  findPerformer(id: $id) { ...PerformerData }
}`+performerFields, true)

	docFindStudios = mustDocument(`
query FindStudios($filter: FindFilterType, $studio_filter: StudioFilterType) {
  findStudios(filter: $filter, studio_filter: $studio_filter) {
    count
    studios { ...StudioData }
  }
}`+studioFields, true)

	docFindStudio = mustDocument(`
query FindStudio($id: ID!) {
  findStudio(id: $id) { ...StudioData }
}`+studioFields, true)

	docFindGroups = mustDocument(`
query FindGroups($filter: FindFilterType, $group_filter: GroupFilterType) {
  findGroups(filter: $filter, group_filter: $group_filter) {
    count
    groups { ...GroupData }
  }
}`+groupFields, true)

	docFindGroup = mustDocument(`
query FindGroup($id: ID!) {
  findGroup(id: $id) { ...GroupData }
}`+groupFields, true)

	docFindTags = mustDocument(`
query FindTags($filter: FindFilterType, $tag_filter: TagFilterType) {
  findTags(filter: $filter, tag_filter: $tag_filter) {
    count
    tags { ...TagData }
  }
}`+tagFields, true)

	docFindTag = mustDocument(`
query FindTag($id: ID!) {
  findTag(id: $id) { ...TagData }
}`+tagFields, true)

	docFindSavedFilters = mustDocument(`
query FindSavedFilters($mode: FilterMode) {
  findSavedFilters(mode: $mode) { ...SavedFilterData }
}`+savedFilterFields, true)

	docFindSavedFilter = mustDocument(`
query FindSavedFilter($id: ID!) {
  findSavedFilter(id: $id) { ...SavedFilterData }
}`+savedFilterFields, true)

	docVersion = mustDocument(`
query Version {
  version { version }
}`, true)

	docSaveActivity = mustDocument(`
mutation SceneSaveActivity($id: ID!, $resume_time: Float, $playDuration: Float) {
  sceneSaveActivity(id: $id, resume_time: $resume_time, playDuration: $playDuration)
}`, true)

	// Adding a play is not idempotent.
	docAddPlay = mustDocument(`
mutation SceneAddPlay($id: ID!) {
  sceneAddPlay(id: $id) { count }
}`, false)

	docResetPlayCount = mustDocument(`
mutation SceneResetPlayCount($id: ID!) {
  sceneResetPlayCount(id: $id)
}`, true)

	docPerformerFavorite = mustDocument(`
mutation PerformerFavorite($id: ID!, $favorite: Boolean) {
  performerUpdate(input: {id: $id, favorite: $favorite}) { id }
}`, true)

	docStudioFavorite = mustDocument(`
mutation StudioFavorite($id: ID!, $favorite: Boolean) {
  studioUpdate(input: {id: $id, favorite: $favorite}) { id }
}`, true)

	docTagFavorite = mustDocument(`
mutation TagFavorite($id: ID!, $favorite: Boolean) {
  tagUpdate(input: {id: $id, favorite: $favorite}) { id }
}`, true)
)
