package driver

const (
	SaveEntityNodeQuery = `
		MERGE (n:Entity {uuid: $uuid})
		SET n.name = $name,
			n.type = $type,
			n.group_id = $group_id,
			n.created_at = $created_at,
			n.summary = $summary,
			n.name_embedding = $name_embedding
		RETURN n.uuid AS uuid
	`

	GetEntityNodeQuery = `
		MATCH (n:Entity {uuid: $uuid})
		RETURN n.uuid AS uuid, n.name AS name, n.type AS type,
			n.group_id AS group_id, n.created_at AS created_at, n.summary AS summary
	`

	ListEntityNodesQuery = `
		MATCH (n:Entity)
		RETURN n.uuid AS uuid, n.name AS name, n.type AS type,
			n.group_id AS group_id, n.created_at AS created_at, n.summary AS summary
		LIMIT $limit
	`

	ListEntityNodesByGroupQuery = `
		MATCH (n:Entity {group_id: $group_id})
		RETURN n.uuid AS uuid, n.name AS name, n.type AS type,
			n.group_id AS group_id, n.created_at AS created_at, n.summary AS summary
		LIMIT $limit
	`

	DeleteEntityNodeQuery = `
		MATCH (n:Entity {uuid: $uuid})
		DETACH DELETE n
		RETURN count(*) AS deleted
	`

	// Endpoint validation for fact creation: both entities must exist and the
	// edge inherits group consistency from them.
	GetFactEndpointsQuery = `
		MATCH (a:Entity {uuid: $source_uuid}), (b:Entity {uuid: $target_uuid})
		RETURN a.group_id AS source_group, b.group_id AS target_group
	`

	SaveEntityEdgeQuery = `
		MATCH (source:Entity {uuid: $source_uuid})
		MATCH (target:Entity {uuid: $target_uuid})
		MERGE (source)-[e:RELATES_TO {uuid: $uuid}]->(target)
		SET e.name = $name,
			e.fact = $fact,
			e.group_id = $group_id,
			e.created_at = $created_at,
			e.valid_at = $valid_at,
			e.invalid_at = $invalid_at,
			e.episodes = $episodes,
			e.fact_embedding = $fact_embedding
		RETURN e.uuid AS uuid
	`

	GetFactQuery = `
		MATCH (n1:Entity)-[e:RELATES_TO {uuid: $uuid}]->(n2:Entity)
		RETURN e.uuid AS uuid, e.name AS name, e.fact AS fact, e.group_id AS group_id,
			e.created_at AS created_at, e.valid_at AS valid_at, e.invalid_at AS invalid_at,
			e.episodes AS episodes,
			n1.uuid AS source_uuid, n2.uuid AS target_uuid,
			n1.name AS source_name, n2.name AS target_name
	`

	// coalesce keeps the first invalidation timestamp, making the call
	// idempotent. A fresh invalidation is floored at created_at so invalid_at
	// never precedes it; RFC3339 UTC strings order chronologically, so the
	// string comparison is the time comparison. The returned invalid_at tells
	// the caller whether the fact was live before this statement ran.
	InvalidateFactQuery = `
		MATCH ()-[e:RELATES_TO {uuid: $uuid}]->()
		WITH e, e.invalid_at AS previous_invalid_at
		SET e.invalid_at = coalesce(
			CASE WHEN e.invalid_at = "" THEN null ELSE e.invalid_at END,
			CASE WHEN $invalid_at >= e.created_at THEN $invalid_at ELSE e.created_at END)
		RETURN e.uuid AS uuid, previous_invalid_at, e.invalid_at AS invalid_at
	`

	DeleteFactQuery = `
		MATCH ()-[e:RELATES_TO {uuid: $uuid}]->()
		DELETE e
		RETURN count(*) AS deleted
	`

	ListFactsQuery = `
		MATCH (n1:Entity)-[e:RELATES_TO]->(n2:Entity)
		RETURN e.uuid AS uuid, e.name AS name, e.fact AS fact, e.group_id AS group_id,
			e.created_at AS created_at, e.valid_at AS valid_at, e.invalid_at AS invalid_at,
			e.episodes AS episodes,
			n1.uuid AS source_uuid, n2.uuid AS target_uuid,
			n1.name AS source_name, n2.name AS target_name
		LIMIT $limit
	`

	ListFactsByGroupQuery = `
		MATCH (n1:Entity)-[e:RELATES_TO]->(n2:Entity)
		WHERE e.group_id = $group_id
		RETURN e.uuid AS uuid, e.name AS name, e.fact AS fact, e.group_id AS group_id,
			e.created_at AS created_at, e.valid_at AS valid_at, e.invalid_at AS invalid_at,
			e.episodes AS episodes,
			n1.uuid AS source_uuid, n2.uuid AS target_uuid,
			n1.name AS source_name, n2.name AS target_name
		LIMIT $limit
	`

	ListLiveFactsBetweenQuery = `
		MATCH (n1:Entity {uuid: $source_uuid})-[e:RELATES_TO]->(n2:Entity {uuid: $target_uuid})
		WHERE e.group_id = $group_id AND (e.invalid_at IS NULL OR e.invalid_at = "")
		RETURN e.uuid AS uuid, e.name AS name, e.fact AS fact, e.group_id AS group_id,
			e.created_at AS created_at, e.valid_at AS valid_at, e.invalid_at AS invalid_at,
			e.episodes AS episodes,
			n1.uuid AS source_uuid, n2.uuid AS target_uuid,
			n1.name AS source_name, n2.name AS target_name
	`

	SaveEpisodicNodeQuery = `
		MERGE (n:Episodic {uuid: $uuid})
		SET n.name = $name,
			n.group_id = $group_id,
			n.created_at = $created_at,
			n.valid_at = $valid_at,
			n.content = $content,
			n.source = $source,
			n.source_description = $source_description,
			n.entity_edges = $entity_edges
		RETURN n.uuid AS uuid
	`

	SaveEpisodicEdgeQuery = `
		MATCH (episode:Episodic {uuid: $source_uuid})
		MATCH (node:Entity {uuid: $target_uuid})
		MERGE (episode)-[e:MENTIONS {uuid: $uuid}]->(node)
		SET e.group_id = $group_id,
			e.created_at = $created_at
		RETURN e.uuid AS uuid
	`

	GetEpisodeQuery = `
		MATCH (e:Episodic {uuid: $uuid})
		OPTIONAL MATCH (e)-[:MENTIONS]->(n:Entity)
		RETURN e.uuid AS uuid, e.name AS name, e.group_id AS group_id,
			e.created_at AS created_at, e.valid_at AS valid_at, e.content AS content,
			e.source AS source, e.source_description AS source_description,
			e.entity_edges AS entity_edges,
			collect(n.uuid) AS mentioned_uuids, collect(n.name) AS mentioned_names,
			collect(n.type) AS mentioned_types
	`

	DeleteEpisodeQuery = `
		MATCH (e:Episodic {uuid: $uuid})
		DETACH DELETE e
		RETURN count(*) AS deleted
	`

	ListEpisodesByGroupQuery = `
		MATCH (e:Episodic {group_id: $group_id})
		RETURN e.uuid AS uuid, e.name AS name, e.group_id AS group_id,
			e.created_at AS created_at, e.valid_at AS valid_at, e.content AS content,
			e.source AS source, e.source_description AS source_description,
			e.entity_edges AS entity_edges
		ORDER BY e.created_at DESC
		LIMIT $limit
	`

	// Cascade bookkeeping: how many facts (live or historical) touch the
	// entity and how many distinct episodes still mention it. An episode may
	// carry several MENTIONS edges to one entity; it counts once.
	CountEntityReferencesQuery = `
		MATCH (n:Entity {uuid: $uuid})
		OPTIONAL MATCH (n)-[r:RELATES_TO]-()
		WITH n, count(r) AS fact_count
		OPTIONAL MATCH (ep:Episodic)-[:MENTIONS]->(n)
		RETURN fact_count, count(DISTINCT ep) AS episode_count
	`

	// Scored retrieval over live facts with embeddings. Score is
	// (2 - cosine_distance) / 2, in [0, 1].
	ScoredSearchQuery = `
		MATCH (n:Entity)-[e:RELATES_TO]->(m:Entity)
		WHERE e.fact_embedding IS NOT NULL
			AND (e.invalid_at IS NULL OR e.invalid_at = "")
		WITH e, n, m, (2 - vec.cosineDistance(e.fact_embedding, vecf32($search_vector))) / 2 AS score
		WHERE score > $threshold
		RETURN e.uuid AS uuid, e.fact AS fact, e.group_id AS group_id,
			e.created_at AS created_at, e.valid_at AS valid_at, e.invalid_at AS invalid_at,
			n.name AS source_entity, m.name AS target_entity,
			n.uuid AS source_uuid, m.uuid AS target_uuid,
			score
		ORDER BY score DESC
		LIMIT $limit
	`

	ScoredSearchByGroupsQuery = `
		MATCH (n:Entity)-[e:RELATES_TO]->(m:Entity)
		WHERE e.fact_embedding IS NOT NULL
			AND (e.invalid_at IS NULL OR e.invalid_at = "")
			AND e.group_id IN $group_ids
		WITH e, n, m, (2 - vec.cosineDistance(e.fact_embedding, vecf32($search_vector))) / 2 AS score
		WHERE score > $threshold
		RETURN e.uuid AS uuid, e.fact AS fact, e.group_id AS group_id,
			e.created_at AS created_at, e.valid_at AS valid_at, e.invalid_at AS invalid_at,
			n.name AS source_entity, m.name AS target_entity,
			n.uuid AS source_uuid, m.uuid AS target_uuid,
			score
		ORDER BY score DESC
		LIMIT $limit
	`

	// Community detection input: live facts between entities of one group.
	ListLiveGroupGraphQuery = `
		MATCH (n:Entity {group_id: $group_id})-[e:RELATES_TO]->(m:Entity {group_id: $group_id})
		WHERE e.invalid_at IS NULL OR e.invalid_at = ""
		RETURN e.uuid AS uuid, n.uuid AS source_uuid, m.uuid AS target_uuid
	`
)
