package shiphero

const inventoryChangesQuery = `
query($dateFrom: ISODateTime, $dateTo: ISODateTime, $sku: String, $locationId: String, $first: Int, $after: String) {
  inventory_changes(
    date_from: $dateFrom
    date_to: $dateTo
    sku: $sku
    location_id: $locationId
  ) {
    request_id
    complexity
    data(first: $first, after: $after) {
      pageInfo {
        hasNextPage
        endCursor
      }
      edges {
        node {
          user_id
          account_id
          warehouse_id
          sku
          previous_on_hand
          change_in_on_hand
          reason
          cycle_counted
          location_id
          created_at
          location {
            id
            name
            zone
            pickable
            sellable
            temperature
            last_counted
          }
        }
        cursor
      }
    }
  }
}`

const inventoryStatusQuery = `
query($sku: String, $first: Int!, $after: String) {
  inventory(sku: $sku, first: $first, after: $after) {
    request_id
    complexity
    page_info {
      has_next_page
      end_cursor
    }
    edges {
      node {
        id
        sku
        warehouse_products {
          warehouse_id
          on_hand
          available
          reserved
          replenishable
          warehouse {
            name
            legacy_id
          }
        }
        product {
          name
          barcode
          vendor_sku
          retail_price
          wholesale_price
        }
      }
    }
  }
}`

const productsQuery = `
query($sku: String, $first: Int, $after: String) {
  products(sku: $sku) {
    request_id
    complexity
    data(first: $first, after: $after) {
      pageInfo {
        hasNextPage
        endCursor
      }
      edges {
        node {
          id
          legacy_id
          account_id
          name
          sku
          barcode
          country_of_manufacture
          dimensions {
            height
            width
            length
            weight
          }
          tariff_code
          kit
          kit_build
          no_air
          final_sale
          customs_value
          customs_description
          not_owned
          dropship
          needs_serial_number
          virtual
          active
          created_at
          updated_at
          warehouse_products {
            warehouse_id
            on_hand
          }
          tags
          kit_components {
            sku
            quantity
          }
        }
      }
    }
  }
}`

const kitQuery = `
query($sku: String!) {
  product(sku: $sku) {
    id
    sku
    name
    components {
      id
      sku
      quantity
      product {
        name
        sku
      }
    }
  }
}`

const kitBuildMutation = `
mutation($sku: String!, $components: [KitComponentInput!]!, $warehouseId: ID!, $kitBuild: Boolean) {
  kit_build(
    data: {
      sku: $sku
      components: $components
      warehouse_id: $warehouseId
      kit_build: $kitBuild
    }
  ) {
    request_id
    complexity
    product {
      id
      sku
      components {
        id
        sku
      }
    }
  }
}`

const kitRemoveComponentsMutation = `
mutation($sku: String!, $components: [KitComponentInput!]!) {
  kit_remove_components(data: { sku: $sku, components: $components }) {
    request_id
    complexity
    product {
      id
      sku
      components {
        id
        sku
      }
    }
  }
}`

const kitClearMutation = `
mutation($sku: String!) {
  kit_clear(data: { sku: $sku }) {
    request_id
    complexity
  }
}`

const accountQuery = `
query {
  account {
    request_id
    complexity
    data {
      id
      legacy_id
      email
      username
      status
      is_3pl
      warehouses {
        id
        legacy_id
        identifier
        invoice_email
        profile
        address {
          name
        }
      }
    }
  }
}`

const warehouseProductsQuery = `
query($warehouse_id: String, $first: Int, $after: String) {
  warehouse_products(warehouse_id: $warehouse_id) {
    request_id
    complexity
    data(first: $first, after: $after) {
      pageInfo {
        hasNextPage
        endCursor
      }
      edges {
        node {
          id
          account_id
          on_hand
          inventory_bin
          reserve_inventory
          reorder_amount
          reorder_level
          custom
          warehouse {
            id
            dynamic_slotting
            profile
          }
          product {
            id
            name
            sku
          }
        }
        cursor
      }
    }
  }
}`

// snapshotFields is shared by every snapshot operation.
const snapshotFields = `
      snapshot_id
      job_user_id
      job_account_id
      warehouse_id
      customer_account_id
      notification_email
      email_error
      post_url
      post_error
      post_url_pre_check
      status
      error
      created_at
      enqueued_at
      updated_at
      snapshot_url
      snapshot_expiration`

const generateSnapshotMutation = `
mutation InventoryGenerateSnapshot($warehouse_id: String!) {
  inventory_generate_snapshot(data: { warehouse_id: $warehouse_id }) {
    request_id
    complexity
    snapshot {` + snapshotFields + `
    }
  }
}`

const snapshotQuery = `
query($snapshot_id: String!) {
  inventory_snapshot(snapshot_id: $snapshot_id) {
    request_id
    complexity
    snapshot {` + snapshotFields + `
    }
  }
}`

const abortSnapshotMutation = `
mutation InventoryAbortSnapshot($snapshot_id: String!) {
  inventory_abort_snapshot(data: { snapshot_id: $snapshot_id }) {
    request_id
    complexity
    snapshot {` + snapshotFields + `
    }
  }
}`
